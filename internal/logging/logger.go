// Package logging はプロジェクト全体で使う構造化ロガーのインターフェースを定義します。
package logging

import "context"

// Logger はコンテキスト付きの構造化ロガーです。
// 可変長引数は key, value の組として解釈されます。
//
//	log.Info(ctx, "task created", "task_id", id, "user_id", userID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With は常に指定の属性を付与する子ロガーを返します。
	With(args ...any) Logger
}
