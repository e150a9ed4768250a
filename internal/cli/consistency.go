package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/services"
)

// RunCheck prints the consistency report and returns whether the ledger is
// clean.
func RunCheck(ctx context.Context, store *db.Store, out io.Writer) (bool, error) {
	report, err := services.NewConsistencyService(store).Check(ctx)
	if err != nil {
		return false, fmt.Errorf("consistency check: %w", err)
	}
	printReport(out, report)
	return report.Clean(), nil
}

func RunRepair(ctx context.Context, store *db.Store, out io.Writer) error {
	service := services.NewConsistencyService(store)
	result, err := service.Repair(ctx)
	if err != nil {
		return fmt.Errorf("consistency repair: %w", err)
	}
	fmt.Fprintf(out, "Realigned %d card pointer(s), closed %d ledger row(s)\n", result.PointersRealigned, result.AssignmentsDisabled)

	report, err := service.Check(ctx)
	if err != nil {
		return fmt.Errorf("consistency check: %w", err)
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, report services.ConsistencyReport) {
	if report.Clean() {
		fmt.Fprintln(out, "Ledger is consistent")
		return
	}

	for _, mismatch := range report.PointerMismatches {
		fmt.Fprintf(out, "card %d: pointer %s, ledger %s\n", mismatch.CardID, formatUserRef(mismatch.CardAssigneeID), formatUserRef(mismatch.LedgerUserID))
	}
	for _, duplicate := range report.DuplicateActive {
		fmt.Fprintf(out, "card %d: %d active ledger rows %v\n", duplicate.CardID, len(duplicate.AssignmentIDs), duplicate.AssignmentIDs)
	}
	for _, orphan := range report.OrphanActive {
		fmt.Fprintf(out, "card %d: deleted but holds active ledger rows %v\n", orphan.CardID, orphan.AssignmentIDs)
	}
	for _, violation := range report.WorkloadViolations {
		fmt.Fprintf(out, "project %d: user %d holds %d unfinished cards\n", violation.ProjectID, violation.UserID, violation.UnfinishedCards)
	}
}

func formatUserRef(userID *uint) string {
	if userID == nil {
		return "none"
	}
	return fmt.Sprintf("user %d", *userID)
}
