package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lightninglabs/htlcswap/swapdb"
)

// spoolRecord is the file format of a spooled release.
type spoolRecord struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	HTLCID    string `json:"htlc_id"`
	FillID    string `json:"fill_id,omitempty"`
	Chain     string `json:"chain"`
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Secret    string `json:"secret"`
}

// SpoolExecutor hands releases to an external relayer by writing one file
// per release into a directory. The file name is derived from the release
// key, so spooling the same release twice leaves a single file.
type SpoolExecutor struct {
	dir string
}

// NewSpoolExecutor creates the spool directory if needed.
func NewSpoolExecutor(dir string) (*SpoolExecutor, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &SpoolExecutor{dir: dir}, nil
}

// fileName maps a release key to its spool file.
func (s *SpoolExecutor) fileName(key string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(key, ":", "_")+".json")
}

// Release writes the release to the spool. The returned id references the
// spool file, the relayer reports the chain transaction out of band.
func (s *SpoolExecutor) Release(_ context.Context,
	intent *swapdb.ReleaseIntent) (string, error) {

	target := s.fileName(intent.Key)
	txID := "spool:" + intent.Key

	_, err := os.Stat(target)
	switch {
	case err == nil:
		return txID, nil

	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}

	data, err := json.MarshalIndent(&spoolRecord{
		Key:       intent.Key,
		Kind:      string(intent.Kind),
		HTLCID:    intent.HTLCID,
		FillID:    intent.FillID,
		Chain:     intent.Chain.String(),
		Token:     intent.Token,
		Recipient: intent.Recipient,
		Amount:    intent.Amount,
		Secret:    intent.Secret.String(),
	}, "", "  ")
	if err != nil {
		return "", err
	}

	// Write to a temporary file first so the relayer never picks up a
	// partial record.
	tmp, err := os.CreateTemp(s.dir, ".release-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("unable to spool %v: %w", intent.Key, err)
	}

	return txID, nil
}
