package app

import "strings"

// Command はbearfolioバイナリの起動モードを表す。
// 同一バイナリをserve/worker/migrate/healthcheckの各モードで使い回す。
type Command string

const (
	// CommandServe はGraphQL APIサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker はembeddingバックフィルとクリーンアップのワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーに疎通確認して終了する。
	// distrolessイメージにはcurlが無いためHEALTHCHECKから使う。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand は先頭引数からサブコマンドを解析する。大文字小文字は区別しない。
// 引数が空またはサポート外の場合はCommandServeにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[strings.ToLower(args[0])]; ok {
		return cmd
	}
	return CommandServe
}
