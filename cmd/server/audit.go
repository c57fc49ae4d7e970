package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"market_chat/internal/repository"
	"market_chat/internal/service"
)

var auditRoomID int64

// auditCmd печатает журнал аудита комнаты, в том числе удалённой.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit trail of a chat room as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dbPool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer dbPool.Close()

		audit := service.NewAuditService(repository.NewAuditRepository(dbPool, appLogger), appLogger)
		trail, err := audit.RoomTrail(ctx, auditRoomID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(trail)
	},
}

func init() {
	auditCmd.Flags().Int64Var(&auditRoomID, "room", 0, "room id")
	_ = auditCmd.MarkFlagRequired("room")
}
