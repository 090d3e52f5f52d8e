package history

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
)

// Open creates the ledger selected by the storage configuration
func Open(cfg config.StorageConfig, logger *slog.Logger) (Ledger, error) {
	switch strings.ToLower(cfg.Ledger) {
	case "", config.LedgerJSON:
		return NewFileLedger(cfg.HistoryFile, WithFileLogger(logger)), nil
	case config.LedgerSQLite:
		return NewSQLiteLedger(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown ledger %q", cfg.Ledger)
	}
}
