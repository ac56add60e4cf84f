// Package telemetry implements the C12 TelemetrySink contract: a periodic
// snapshot of every robot's physical and logical state, serialized to a
// durable sink. §6/§4.12 specify the contract only ("the sink
// implementation is external"); this package also supplies the one
// concrete file-backed sink a standalone binary needs to produce telemetry
// without an external collector.
package telemetry

import (
	"encoding/json"
	"io"
	"os"

	"go.uber.org/zap"
)

// RobotSnapshot is one robot's entry in a tick's telemetry document (§6).
type RobotSnapshot struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Status      string  `json:"status"`
	DriverState string  `json:"driverState"`
	Battery     float64 `json:"battery"`
	HasPackage  bool    `json:"hasPackage"`
}

// Snapshot is one tick's full telemetry document (§6).
type Snapshot struct {
	Tick   int             `json:"tick"`
	Robots []RobotSnapshot `json:"robots"`
}

// Sink is the C12 contract: anything that can durably record one tick's
// snapshot. Write errors are non-fatal per §5/§7 IoError — callers log and
// continue rather than aborting the physics tick.
type Sink interface {
	Write(Snapshot) error
	Close() error
}

// NopSink discards every snapshot; used when telemetry is disabled.
type NopSink struct{}

func (NopSink) Write(Snapshot) error { return nil }
func (NopSink) Close() error         { return nil }

// FileSink appends one JSON document per line (JSON Lines) to a writer,
// the simplest durable format satisfying "one file per tick or a single
// streamed document" (§6).
type FileSink struct {
	w   io.WriteCloser
	enc *json.Encoder
	log *zap.SugaredLogger
}

// NewFileSink creates path, or truncates it if it already exists, and
// returns a Sink that streams one telemetry document per line.
func NewFileSink(path string, log *zap.SugaredLogger) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileSink{w: f, enc: json.NewEncoder(f), log: log.Named("telemetry")}, nil
}

// Write serializes one tick's snapshot as a JSON line. Per §5, telemetry
// I/O errors are logged but never fatal; Write still returns the error so
// a caller that wants stricter behavior can opt in.
func (s *FileSink) Write(snap Snapshot) error {
	if err := s.enc.Encode(snap); err != nil {
		s.log.Errorw("telemetry write failed, continuing", "tick", snap.Tick, "err", err)
		return err
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error { return s.w.Close() }
