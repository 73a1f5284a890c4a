package events

import (
	plog "github.com/phuslu/log"

	"github.com/ternarybob/augur/internal/common"
)

// JournalToFile starts a background subscriber that appends every run
// event to a JSON-lines file. The journal outlives the process, so a
// run can still be audited after a restart. phuslu writes each line
// without buffering surprises, and rotation keeps the file bounded.
func (s *Service) JournalToFile(path string) {
	journal := plog.Logger{
		Level: plog.InfoLevel,
		Writer: &plog.FileWriter{
			Filename:     path,
			MaxSize:      50 << 20,
			MaxBackups:   3,
			EnsureFolder: true,
			LocalTime:    true,
		},
	}

	id, ch := s.Subscribe(defaultBuffer)
	common.SafeGo(s.logger, "run-event-journal", func() {
		for ev := range ch {
			journal.Info().
				Str("run_id", ev.RunID).
				Str("state", string(ev.State)).
				Str("mode", ev.Mode).
				Int("seq", ev.Event.Seq).
				Str("kind", ev.Event.Kind).
				Str("detail", ev.Event.Detail).
				Msg("Run event")
		}
	})
	s.logger.Debug().Str("subscriber", id).Str("path", path).Msg("Run event journal started")
}
