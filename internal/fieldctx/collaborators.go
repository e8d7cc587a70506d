package fieldctx

import (
	"context"

	"github.com/courierhq/fieldlink/internal/printing"
)

// The scanning screen depends on these collaborator contracts; their
// implementations live outside this core.

// QueueResult reports the outcome of queuing a scan action for later upload.
type QueueResult struct {
	Success bool
	Message string
}

// ActionQueue stores scan actions while connectivity is unavailable. The
// print path is invoked after a successful queue write exactly as it is
// after a successful online scan.
type ActionQueue interface {
	StoreScanAction(ctx context.Context, packageCode, actionType, actor string, metadata map[string]string) (QueueResult, error)
}

// Package is what the orchestration layer hands to PrintPackage.
type Package struct {
	Code     string
	Customer string
	Status   string
}

// PrintOrchestrator is the higher-level print helper the scanning screen
// calls; its retry and availability policy are out of scope here.
type PrintOrchestrator interface {
	IsPrintingAvailable() bool
	PrintPackage(ctx context.Context, pkg Package) error
}

// Receipt maps a package to the receipt this core prints for it.
func (p Package) Receipt() printing.Receipt {
	return printing.Receipt{
		PackageCode: p.Code,
		Customer:    p.Customer,
		Status:      p.Status,
	}
}
