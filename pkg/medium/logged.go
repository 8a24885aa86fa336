package medium

import (
	log "github.com/sirupsen/logrus"

	. "github.com/weberc2/diskfs/pkg/types"
)

// Logged decorates a medium with a debug log entry per operation.
type Logged struct {
	Medium
	Logger log.FieldLogger
}

func NewLogged(inner Medium, logger log.FieldLogger) *Logged {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Logged{Medium: inner, Logger: logger}
}

func (l *Logged) ReadAll(offset Byte, p []byte) error {
	err := l.Medium.ReadAll(offset, p)
	l.entry(OpRead, offset, len(p), err)
	return err
}

func (l *Logged) WriteAll(offset Byte, p []byte) error {
	err := l.Medium.WriteAll(offset, p)
	l.entry(OpWrite, offset, len(p), err)
	return err
}

func (l *Logged) entry(op Op, offset Byte, length int, err error) {
	entry := l.Logger.WithFields(log.Fields{
		"op":     op,
		"offset": offset,
		"len":    length,
	})
	if err != nil {
		entry.WithError(err).Warn("medium operation failed")
		return
	}
	entry.Debug("medium operation")
}
