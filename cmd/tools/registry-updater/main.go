// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	ts "cpq-console/internal/workers/catalog/transition-status"
	ec "cpq-console/internal/workers/dashboard/export-csv"
	esp "cpq-console/internal/workers/opportunity/export-summary-pdf"
	sw "cpq-console/internal/workers/opportunity/submit-workflow"
	"cpq-console/pkg/registry"
)

// builtin describes the workers compiled into the worker manager.
var builtin = []registry.Activity{
	{
		ID:          "submit-workflow",
		DisplayName: "Submit Opportunity",
		Description: "Creates an opportunity through the workflow endpoint or applies a pricing update, then journals and announces the outcome",
		Category:    "opportunity",
		TaskType:    sw.TaskType,
		ErrorCodes:  []string{"VALIDATION_FAILED", "BACKEND_REQUEST_FAILED", "BACKEND_UNAUTHORIZED", "BACKEND_TIMEOUT"},
		Timeout:     "30s",
		Retries:     3,
		Workflows:   []string{"opportunity-submission", "opportunity-pricing-update"},
		Tags:        []string{"wizard", "servicenow"},
	},
	{
		ID:          "transition-status",
		DisplayName: "Transition Catalog Status",
		Description: "Advances or sets the status of a catalog or category",
		Category:    "catalog",
		TaskType:    ts.TaskType,
		ErrorCodes:  []string{"VALIDATION_FAILED", "STATUS_TRANSITION_NOT_ALLOWED", "CATALOG_LOCKED", "RELATIONSHIP_CREATE_FAILED"},
		Timeout:     "15s",
		Retries:     3,
		Tags:        []string{"lifecycle"},
	},
	{
		ID:          "export-csv",
		DisplayName: "Export Dashboard CSV",
		Description: "Writes a filtered and sorted collection to a CSV file",
		Category:    "dashboard",
		TaskType:    ec.TaskType,
		ErrorCodes:  []string{"VALIDATION_FAILED", "EXPORT_FAILED", "BACKEND_TIMEOUT"},
		Timeout:     "60s",
		Retries:     2,
		Tags:        []string{"export"},
	},
	{
		ID:          "export-summary-pdf",
		DisplayName: "Export Opportunity Summary PDF",
		Description: "Renders the review summary of an opportunity as a paginated A4 PDF",
		Category:    "opportunity",
		TaskType:    esp.TaskType,
		ErrorCodes:  []string{"VALIDATION_FAILED", "RESOURCE_NOT_FOUND", "EXPORT_FAILED"},
		Timeout:     "60s",
		Retries:     2,
		Tags:        []string{"export", "pdf"},
	},
}

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)

	var registryPath string
	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, syncCmd, checkCmd} {
		fs.StringVar(&registryPath, "path", "configs/activity-registry.json", "Path to registry file")
	}

	idAdd := addCmd.String("id", "", "Activity ID (e.g., export-csv)")
	displayName := addCmd.String("displayName", "", "Display Name")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., opportunity)")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (e.g., dashboard.export.csv)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries, ...)")
	value := updateCmd.String("value", "", "New value for the field")

	idCheck := checkCmd.String("id", "", "Activity ID to check variables against")
	vars := checkCmd.String("vars", "{}", "Job variables as a JSON object")

	now := time.Now()
	var err error

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, description, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		err = mutate(registryPath, now, func(reg *registry.ActivityRegistry) error {
			return reg.Add(registry.Activity{
				ID:                   *idAdd,
				DisplayName:          *displayName,
				Description:          *description,
				Category:             *category,
				Version:              *version,
				TaskType:             *taskType,
				ImplementationStatus: *implStatus,
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{},
				Timeout:              "10s",
				Workflows:            []string{},
				Tags:                 []string{},
			}, now)
		})
		if err == nil {
			fmt.Printf("Added activity: %s\n", *idAdd)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = mutate(registryPath, now, func(reg *registry.ActivityRegistry) error {
			return reg.Set(*idUpdate, *field, *value, now)
		})
		if err == nil {
			fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)
		}

	case "sync":
		syncCmd.Parse(os.Args[2:])
		added := 0
		err = mutate(registryPath, now, func(reg *registry.ActivityRegistry) error {
			for _, a := range builtin {
				if _, exists := reg.Find(a.ID); exists {
					continue
				}
				a.Version = "1.0.0"
				a.ImplementationStatus = "completed"
				if err := reg.Add(a, now); err != nil {
					return err
				}
				added++
			}
			return nil
		})
		if err == nil {
			fmt.Printf("Synced built-in workers, %d added.\n", added)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		var reg *registry.ActivityRegistry
		if reg, err = registry.LoadRegistry(registryPath); err == nil {
			err = reg.Validate()
		}
		if err == nil {
			fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
		}

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *idCheck == "" {
			fmt.Println("Error: id is required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		err = check(registryPath, *idCheck, *vars)

	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func mutate(path string, now time.Time, fn func(reg *registry.ActivityRegistry) error) error {
	reg, err := registry.LoadOrNew(path, now)
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return registry.Save(reg, path)
}

func check(path, id, rawVars string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	a, ok := reg.Find(id)
	if !ok {
		return fmt.Errorf("activity with ID %s not found", id)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(rawVars), &vars); err != nil {
		return fmt.Errorf("invalid -vars: %w", err)
	}
	result, err := a.CheckVariables(vars)
	if err != nil {
		return err
	}
	if !result.Valid {
		for _, msg := range result.GetErrorMessages() {
			fmt.Println("  " + msg)
		}
		return fmt.Errorf("variables do not match the input schema of %s", id)
	}
	fmt.Printf("Variables match the input schema of %s.\n", id)
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  sync     Add any built-in worker missing from the registry
  validate Validate the registry file
  check    Check job variables against an activity's input schema
  help     Show this help message

Examples:
  registry-updater sync
  registry-updater add -id notify-account-owner -displayName "Notify Account Owner" -description "Emails the account owner" -category opportunity -taskType opportunity.owner.notify
  registry-updater update -id export-csv -field timeout -value 90s
  registry-updater validate -path configs/activity-registry.json
  registry-updater check -id transition-status -vars '{"entity":"catalog","id":"c-1"}'

Use 'registry-updater <command> -h' for more information about a command.

`)
}
