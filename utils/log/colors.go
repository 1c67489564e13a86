package log

import (
	"bytes"

	"github.com/fatih/color"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var escapedESC = []byte("\\u001b")

// colorEncoder wraps the console encoder so that the ANSI sequences written by
// the level encoder reach the terminal unescaped.
type colorEncoder struct {
	zapcore.Encoder
}

func newColorEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	cfg.EncodeLevel = levelEncoder()
	return colorEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

// levelEncoder drops the colours when stdout is not a terminal or NO_COLOR is set.
func levelEncoder() zapcore.LevelEncoder {
	if color.NoColor {
		return zapcore.CapitalLevelEncoder
	}
	return zapcore.CapitalColorLevelEncoder
}

func (c colorEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(buf.Bytes(), escapedESC) {
		return buf, nil
	}
	line := bytes.ReplaceAll(buf.Bytes(), escapedESC, []byte("\u001b"))
	buf.Reset()
	_, _ = buf.Write(line)
	return buf, nil
}

func (c colorEncoder) Clone() zapcore.Encoder {
	return colorEncoder{Encoder: c.Encoder.Clone()}
}
