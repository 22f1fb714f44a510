// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jeranaias/riskgate/internal/util"
)

// ExportToFile writes the full ledger export into dir under a
// timestamp-derived filename and returns the written path. The write is
// atomic: a crash mid-export never leaves a truncated document.
func (l *Ledger) ExportToFile(dir string) (string, error) {
	data, err := l.Export()
	if err != nil {
		return "", fmt.Errorf("audit: export failed: %w", err)
	}

	path := filepath.Join(dir, ExportFilename(time.Now()))
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("audit: export write failed: %w", err)
	}
	return path, nil
}
