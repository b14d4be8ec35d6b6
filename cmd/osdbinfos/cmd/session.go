package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MeetLima/osdbinfos/pkg/core/session"
	"github.com/spf13/cobra"
)

type sessionStatus struct {
	Valid     bool       `json:"valid"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show whether the stored session can be reused",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func init() {
	RootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	svc, err := NewServiceFunc(newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer svc.Close()

	status := sessionStatus{Valid: svc.SessionValid()}
	if s := svc.Session(); s.Token != "" && !s.IssuedAt.IsZero() {
		issued := s.IssuedAt
		expires := issued.Add(session.TokenLifetime)
		status.IssuedAt = &issued
		status.ExpiresAt = &expires
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
