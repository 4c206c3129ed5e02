package swap

import (
	"fmt"

	"github.com/btcsuite/btclog/v2"
)

// PrefixLog logs with a short entity id prefix.
type PrefixLog struct {
	// Logger is the underlying based logger.
	Logger btclog.Logger

	// ID is the id that identifies the target entity.
	ID string
}

// Debugf formats message according to format specifier and writes to
// log with LevelDebug.
func (s *PrefixLog) Debugf(format string, params ...interface{}) {
	s.Logger.Debugf(
		fmt.Sprintf("%v %s", ShortID(s.ID), format), params...,
	)
}

// Infof formats message according to format specifier and writes to
// log with LevelInfo.
func (s *PrefixLog) Infof(format string, params ...interface{}) {
	s.Logger.Infof(
		fmt.Sprintf("%v %s", ShortID(s.ID), format), params...,
	)
}

// Warnf formats message according to format specifier and writes to log with
// LevelWarn.
func (s *PrefixLog) Warnf(format string, params ...interface{}) {
	s.Logger.Warnf(
		fmt.Sprintf("%v %s", ShortID(s.ID), format), params...,
	)
}

// Errorf formats message according to format specifier and writes to log with
// LevelError.
func (s *PrefixLog) Errorf(format string, params ...interface{}) {
	s.Logger.Errorf(
		fmt.Sprintf("%v %s", ShortID(s.ID), format), params...,
	)
}

// ShortID returns a shortened version of the id suitable for use in
// logging.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}

	return id[:8]
}
