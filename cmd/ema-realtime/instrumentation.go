package main

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-realtime/cmd/ema-realtime"

var logger = otelslog.NewLogger(scopeName)
