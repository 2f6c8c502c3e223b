package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler writes one object per line with short ts/level/msg keys.
// Sizes stay raw byte counts and durations become float seconds so the log
// file can be aggregated without parsing human units.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 {
				switch attr.Key {
				case slog.TimeKey:
					attr.Key = "ts"
					if attr.Value.Kind() == slog.KindTime {
						attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
					}
					return attr
				case slog.LevelKey:
					attr.Key = "level"
					attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
					return attr
				case slog.MessageKey:
					attr.Key = "msg"
					return attr
				case slog.SourceKey:
					if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
						attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
					}
					return attr
				}
			}
			switch attr.Value.Kind() {
			case slog.KindDuration:
				attr.Value = slog.Float64Value(attr.Value.Duration().Seconds())
			case slog.KindAny:
				switch value := attr.Value.Any().(type) {
				case ByteSize:
					attr.Value = slog.Int64Value(int64(value))
				case error:
					attr.Value = slog.StringValue(value.Error())
				}
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}
