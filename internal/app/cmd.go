package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションのサブコマンドを表す。
type Command string

const (
	// CommandServe はリファレンスAPIサーバーを起動する。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"

	// 以下はリモートサービスに対するクライアントコマンド。
	CommandStories    Command = "stories"
	CommandStory      Command = "story"
	CommandSignup     Command = "signup"
	CommandLogin      Command = "login"
	CommandMe         Command = "me"
	CommandSubmit     Command = "submit"
	CommandFavorite   Command = "favorite"
	CommandUnfavorite Command = "unfavorite"
	CommandDelete     Command = "delete"
	CommandImportFeed Command = "import-feed"

	// CommandUnknown はサポート外のサブコマンド。
	CommandUnknown Command = ""
)

// arity はサブコマンドが受け取る引数の数と使い方。
type arity struct {
	min, max int
	usage    string
}

var commandArity = map[Command]arity{
	CommandServe:       {0, 0, "serve"},
	CommandMigrate:     {0, 0, "migrate"},
	CommandHealthcheck: {0, 0, "healthcheck"},
	CommandStories:     {0, 0, "stories"},
	CommandStory:       {1, 1, "story <storyId>"},
	CommandSignup:      {3, 3, "signup <username> <password> <name>"},
	CommandLogin:       {2, 2, "login <username> <password>"},
	CommandMe:          {0, 0, "me"},
	CommandSubmit:      {3, 3, "submit <author> <title> <url>"},
	CommandFavorite:    {1, 1, "favorite <storyId>"},
	CommandUnfavorite:  {1, 1, "unfavorite <storyId>"},
	CommandDelete:      {1, 1, "delete <storyId>"},
	CommandImportFeed:  {1, 2, "import-feed <feedURL> [limit]"},
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はCommandServe、サポート外のコマンドはCommandUnknownを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	cmd := Command(args[0])
	if _, ok := commandArity[cmd]; !ok {
		return CommandUnknown
	}
	return cmd
}

// checkArgs はサブコマンドの引数の数を検証する。
func checkArgs(cmd Command, args []string) error {
	a := commandArity[cmd]
	if len(args) < a.min || len(args) > a.max {
		return fmt.Errorf("usage: hackorsnooze %s", a.usage)
	}
	return nil
}

// Usage はサブコマンド一覧を返す。
func Usage() string {
	order := []Command{
		CommandServe, CommandMigrate, CommandHealthcheck,
		CommandStories, CommandStory, CommandSignup, CommandLogin, CommandMe,
		CommandSubmit, CommandFavorite, CommandUnfavorite, CommandDelete, CommandImportFeed,
	}
	var b strings.Builder
	b.WriteString("usage: hackorsnooze <command> [args]\n\ncommands:\n")
	for _, c := range order {
		b.WriteString("  " + commandArity[c].usage + "\n")
	}
	return b.String()
}

// isServerCommand はリファレンスサーバー側のコマンドかを返す。
func isServerCommand(cmd Command) bool {
	return cmd == CommandServe || cmd == CommandMigrate || cmd == CommandHealthcheck
}
