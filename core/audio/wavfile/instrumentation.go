package wavfile

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-realtime/core/audio/wavfile"

var logger = otelslog.NewLogger(scopeName)
