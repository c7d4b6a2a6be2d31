// Command seed loads example workflows through the governance service so
// they carry a full audit trail.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"workflow-governance/backend/internal/audit"
	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/internal/config"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/internal/services"
	"workflow-governance/backend/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

var seedUser = models.Identity{UserID: "seed-script", DisplayName: "Seed Script"}

type seedWorkflow struct {
	workflow  models.Workflow
	approvers []string
	version   string
}

func tool(id, name, category, price string) models.Tool {
	return models.Tool{ID: id, Name: name, Category: category, Pricing: models.Pricing{StartingPrice: price, Model: "subscription"}}
}

func seedWorkflows() []seedWorkflow {
	return []seedWorkflow{
		{
			workflow: models.Workflow{WorkflowContent: models.WorkflowContent{
				Name:        "Contract Review Pipeline",
				Description: "Clause extraction and redlining for inbound vendor contracts.",
				UseCase:     "Legal team reviews vendor contracts for risky clauses",
				Tools: []models.Tool{
					tool("clause-ai", "Clause Analyzer", "legal", "$120/month"),
					tool("e-sign", "E-Signature", "legal", "$25/month"),
					tool("doc-store", "Document Vault", "document", "$15/month"),
				},
				ComplianceRequirements: []string{"GDPR"},
				Metadata:               models.Metadata{Department: "Legal", Tags: []string{"legal", "contracts"}},
				Collaboration:          models.Collaboration{Permissions: models.PermissionEdit, AllowComments: true, RequireApproval: true},
			}},
			approvers: []string{"legal-lead@example.com"},
		},
		{
			workflow: models.Workflow{WorkflowContent: models.WorkflowContent{
				Name:        "Patient Intake Automation",
				Description: "Digitizes intake forms and routes them to care teams.",
				UseCase:     "Clinic front desk processes new patient intake forms",
				Tools: []models.Tool{
					tool("ocr", "Form OCR", "document", "$49/month"),
					tool("ehr-sync", "EHR Connector", "healthcare", "$199/month"),
					tool("scheduler", "Appointment Scheduler", "healthcare", "$35/month"),
				},
				ComplianceRequirements: []string{"HIPAA"},
				Metadata:               models.Metadata{Department: "Operations", Status: models.StatusPublished, Tags: []string{"healthcare"}},
				Collaboration:          models.Collaboration{Permissions: models.PermissionView, AllowComments: true},
			}},
		},
		{
			workflow: models.Workflow{
				WorkflowContent: models.WorkflowContent{
					Name:        "Invoice Processing",
					Description: "Captures supplier invoices and posts them to the ledger.",
					UseCase:     "Accounts payable matches invoices to purchase orders",
					Tools: []models.Tool{
						tool("capture", "Invoice Capture", "finance", "$60/month"),
						tool("erp", "ERP Connector", "finance", "$150/month"),
					},
					Metadata:      models.Metadata{Department: "Finance", Tags: []string{"finance"}},
					Collaboration: models.Collaboration{Permissions: models.PermissionView},
				},
				VersionControl: models.VersionControl{AutoSave: true, BackupEnabled: true},
			},
			version: "Initial baseline",
		},
	}
}

// seed creates every example workflow that is not stored yet. It returns
// how many were created.
func seed(ctx context.Context, svc *services.GovernanceService, logger *logging.Logger) (int, error) {
	existing, err := svc.List(ctx, services.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list existing workflows: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, w := range existing {
		names[w.Name] = true
	}

	created := 0
	for _, s := range seedWorkflows() {
		if names[s.workflow.Name] {
			logger.Info("Skipping existing workflow", "name", s.workflow.Name)
			continue
		}
		w, err := svc.Create(ctx, s.workflow, seedUser)
		if err != nil {
			return created, fmt.Errorf("failed to create workflow %s: %w", s.workflow.Name, err)
		}
		created++

		if len(s.approvers) > 0 {
			if _, err := svc.RequestApproval(ctx, w.ID, s.approvers, "Seeded for review", seedUser); err != nil {
				return created, err
			}
		}
		if s.version != "" {
			if _, err := svc.CreateVersion(ctx, w.ID, s.version, seedUser); err != nil {
				return created, err
			}
		}
		logger.Info("Seeded workflow", "name", w.Name, "id", w.ID, "status", w.Metadata.Status)
	}
	return created, nil
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	ledger := audit.NewLog(store, clock.Real{})
	svc := services.NewGovernanceService(store, audit.NewSyncRecorder(ledger, logger, nil), clock.Real{}, logger,
		services.WithLedger(ledger))

	n, err := seed(ctx, svc, logger)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("Seeding complete!", "created", n)
}
