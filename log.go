package accumulate

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var globalLog = zerolog.New(nil).Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.TimeOnly,
}).With().Timestamp().Logger()

func Log() *zerolog.Logger {
	return &globalLog
}

func init() {
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.ErrorStackMarshaler = MarshalStack
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetLogLevel parses a level name and applies it globally. An empty name means info.
func SetLogLevel(name string) (level zerolog.Level, err error) {
	if name == "" {
		name = "info"
	}
	level, err = zerolog.ParseLevel(name)
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	zerolog.SetGlobalLevel(level)
	return
}

func MarshalStack(err error) interface{} {
	return pkgerrors.MarshalStack(err)
}
