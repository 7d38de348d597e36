package utils

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	debug       bool
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	fatalLogger *log.Logger
}

func NewLogger(debug bool, writers ...io.Writer) *Logger {
	var out io.Writer = os.Stdout
	var errOut io.Writer = os.Stderr
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
		errOut = out
	}

	return &Logger{
		debug:       debug,
		infoLogger:  log.New(out, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(out, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(errOut, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		fatalLogger: log.New(errOut, "FATAL: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.infoLogger.Println(v...)
}

func (l *Logger) Debug(v ...interface{}) {
	if l.debug {
		l.infoLogger.Println(v...)
	}
}

func (l *Logger) Warn(v ...interface{}) {
	l.warnLogger.Println(v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.errorLogger.Println(v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.fatalLogger.Fatalln(v...)
}
