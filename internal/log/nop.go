package log

import "context"

type Nop struct{}

func (Nop) With(...any) Logger                           { return Nop{} }
func (Nop) Debug(context.Context, string, ...any)        {}
func (Nop) Info(context.Context, string, ...any)         {}
func (Nop) Warn(context.Context, string, ...any)         {}
func (Nop) Error(context.Context, error, string, ...any) {}
