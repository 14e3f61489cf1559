package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	rawColor = "raw"
	colorMap = map[string]color.Attribute{
		"red":     color.FgRed,
		"green":   color.FgGreen,
		"yellow":  color.FgYellow,
		"blue":    color.FgBlue,
		"magenta": color.FgMagenta,
		"cyan":    color.FgCyan,
		"white":   color.FgWhite,
	}
)

type logFunc func(string, ...interface{})

type logger struct {
	config  *Config
	colors  map[string]string
	loggers map[string]logFunc
	out     io.Writer
}

func newLogger(cfg *Config, out io.Writer) *logger {
	if cfg == nil {
		return nil
	}
	if out == nil {
		out = color.Output
	}

	colors := cfg.colorInfo()
	loggers := make(map[string]logFunc, len(colors))
	for name, nameColor := range colors {
		loggers[name] = newLogFunc(out, nameColor, cfg.Log)
	}
	loggers["default"] = newLogFunc(out, "white", cfg.Log)
	return &logger{
		config:  cfg,
		colors:  colors,
		loggers: loggers,
		out:     out,
	}
}

func newLogFunc(out io.Writer, colorname string, cfg cfgLog) logFunc {
	return func(msg string, v ...interface{}) {
		msg = fmt.Sprintf(msg, v...)
		// One entry per line.
		msg = strings.Replace(msg, "\n", "", -1)
		msg = strings.TrimSpace(msg)
		if len(msg) == 0 {
			return
		}
		msg = msg + "\n"
		if cfg.AddTime {
			t := time.Now().Format("15:04:05")
			msg = fmt.Sprintf("[%s] %s", t, msg)
		}
		if colorname == rawColor {
			fmt.Fprint(out, msg)
		} else {
			color.New(getColor(colorname)).Fprint(out, msg)
		}
	}
}

func getColor(name string) color.Attribute {
	if v, ok := colorMap[name]; ok {
		return v
	}
	return color.FgWhite
}

func (l *logger) main() logFunc {
	return l.getLogger("main")
}

func (l *logger) loader() logFunc {
	return l.getLogger("loader")
}

func (l *logger) placeholder() logFunc {
	return l.getLogger("placeholder")
}

func (l *logger) watcher() logFunc {
	return l.getLogger("watcher")
}

func (l *logger) warn() logFunc {
	return l.getLogger("warn")
}

func (l *logger) getLogger(name string) logFunc {
	v, ok := l.loggers[name]
	if !ok {
		return l.loggers["default"]
	}
	return v
}
