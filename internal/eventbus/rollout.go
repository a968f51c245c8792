package eventbus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// RolloutWriter is the append-only newline-delimited-JSON rollout log
// writer described in spec §4.5, grounded on the teacher's TracePlugin:
// write is best-effort, fsync'd only at lifecycle boundaries
// (TaskComplete, TurnAborted, ShutdownComplete).
type RolloutWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	logger *slog.Logger
}

// RolloutPath returns the canonical rollout file path for a session under
// the given home directory: <session_home>/sessions/<uuid>.jsonl.
func RolloutPath(home, sessionID string) string {
	return filepath.Join(home, "sessions", sessionID+".jsonl")
}

// NewRolloutWriter creates or truncates the rollout file at path, writing a
// SessionMeta record as the first line.
func NewRolloutWriter(path, sessionID string, logger *slog.Logger) (*RolloutWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create rollout dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create rollout file: %w", err)
	}
	w := &RolloutWriter{file: f, writer: bufio.NewWriter(f), logger: logger}
	if err := w.writeLine(protocol.RolloutRecord{
		Type: protocol.RolloutSessionMeta,
		Time: time.Now(),
		SessionMeta: &protocol.SessionMeta{
			SessionID: sessionID,
			CreatedAt: time.Now(),
		},
	}); err != nil {
		return nil, err
	}
	if err := w.sync(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RolloutWriter) writeLine(rec protocol.RolloutRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal rollout record: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	return w.writer.WriteByte('\n')
}

func (w *RolloutWriter) sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// WriteItem appends a ResponseItem record if it passes
// IsPersistedResponseItem; writes are best-effort and logged on failure
// (RolloutWriteFailed in the error taxonomy), never aborting the turn.
func (w *RolloutWriter) WriteItem(item protocol.ResponseItem) {
	if !protocol.IsPersistedResponseItem(item) {
		return
	}
	rec := protocol.RolloutRecord{Type: protocol.RolloutResponseItem, Time: time.Now(), Item: &item}
	if err := w.writeLine(rec); err != nil {
		w.logger.Warn("rollout write failed", "error", err, "kind", "ResponseItem")
	}
}

// WriteEvent appends an EventMsg record if it passes IsPersistedEventMsg,
// fsyncing on the lifecycle boundaries named in spec §4.5.
func (w *RolloutWriter) WriteEvent(msg protocol.EventMsg) {
	if !protocol.IsPersistedEventMsg(msg.Type) {
		return
	}
	rec := protocol.RolloutRecord{Type: protocol.RolloutEventMsg, Time: time.Now(), Event: &msg}
	if err := w.writeLine(rec); err != nil {
		w.logger.Warn("rollout write failed", "error", err, "kind", "EventMsg")
		return
	}
	switch msg.Type {
	case protocol.EventTaskComplete, protocol.EventTurnAborted:
		if err := w.sync(); err != nil {
			w.logger.Warn("rollout fsync failed", "error", err)
		}
	}
}

// WriteTurnContext appends a TurnContext executive marker.
func (w *RolloutWriter) WriteTurnContext(tc protocol.TurnContext) {
	rec := protocol.RolloutRecord{Type: protocol.RolloutTurnContext, Time: time.Now(), TurnContext: &tc}
	if err := w.writeLine(rec); err != nil {
		w.logger.Warn("rollout write failed", "error", err, "kind", "TurnContext")
	}
}

// WriteCompacted appends a Compacted executive marker.
func (w *RolloutWriter) WriteCompacted(meta protocol.CompactedMeta) {
	rec := protocol.RolloutRecord{Type: protocol.RolloutCompacted, Time: time.Now(), Compacted: &meta}
	if err := w.writeLine(rec); err != nil {
		w.logger.Warn("rollout write failed", "error", err, "kind", "Compacted")
	}
}

// Shutdown flushes and fsyncs the rollout on ShutdownComplete, then closes
// the file.
func (w *RolloutWriter) Shutdown() error {
	if err := w.sync(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// RolloutReader reads RolloutRecords from a JSONL rollout file for replay
// or projection, grounded on the teacher's TraceReader.
type RolloutReader struct {
	decoder *json.Decoder
}

// NewRolloutReader creates a reader over r.
func NewRolloutReader(r io.Reader) *RolloutReader {
	return &RolloutReader{decoder: json.NewDecoder(r)}
}

// ReadRecord reads the next record. Returns io.EOF when exhausted. A record
// whose "type" is unrecognized is still decoded (Type set, all payload
// pointers nil) so a reader can skip it per spec §6's idempotent-reread
// contract rather than erroring.
func (r *RolloutReader) ReadRecord() (*protocol.RolloutRecord, error) {
	var rec protocol.RolloutRecord
	if err := r.decoder.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReadAll reads every record from the file.
func (r *RolloutReader) ReadAll() ([]protocol.RolloutRecord, error) {
	var out []protocol.RolloutRecord
	for {
		rec, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// ReplayContents reconstructs committed history by applying retained items
// in file order, used to verify the round-trip law from spec §8:
// "contents() reconstructed by applying retained items equals the final
// committed history."
func ReplayContents(records []protocol.RolloutRecord) []protocol.ResponseItem {
	var items []protocol.ResponseItem
	for _, rec := range records {
		switch rec.Type {
		case protocol.RolloutResponseItem:
			if rec.Item != nil {
				items = append(items, *rec.Item)
			}
		case protocol.RolloutCompacted:
			// A compaction marker does not itself carry the replacement
			// items; the ResponseItem records written after it (the system
			// summary, the Compaction marker item) are what the reader
			// applies, exactly as they were recorded.
		}
	}
	return items
}

// Archive moves the rollout file to an archived/ subdirectory, exposed as
// an explicit protocol method rather than an automatic side effect, per
// codex-rs/mcp-server/tests/suite/archive_conversation.rs.
func Archive(home, sessionID string) error {
	src := RolloutPath(home, sessionID)
	dstDir := filepath.Join(home, "sessions", "archived")
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	dst := filepath.Join(dstDir, sessionID+".jsonl")
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("archive rollout: %w", err)
	}
	return nil
}
