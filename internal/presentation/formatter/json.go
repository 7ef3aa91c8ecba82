package formatter

import (
	"io"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-molty-meter/internal/core/model"
)

type JSONFormatter struct {
	w io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

func (f *JSONFormatter) Format(data []model.DailySpend) error {
	if data == nil {
		data = []model.DailySpend{}
	}
	out, err := sonic.ConfigStd.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.w.Write(append(out, '\n'))
	return err
}
