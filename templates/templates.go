// Package templates holds the canonical definition of the seven-stage
// offboarding workflow. The registry is built once and never mutated;
// every accessor hands out deep copies.
package templates

import (
	"github.com/songzhibin97/offboarding/types"
)

// Stage identifiers, in workflow order.
const (
	StageInitialRequest  = "step_1_initial_request"
	StagePeopleOpsReview = "step_2_people_ops_review"
	StagePreLWD          = "step_3_pre_lwd_processing"
	StageLWD             = "step_4_lwd_it_facilities"
	StageExitInterview   = "step_5_exit_interview"
	StagePostLWD         = "step_6_post_lwd_processing"
	StageFinalClosure    = "step_7_final_closure"
)

// RequiredEmployeeFields are validated on request creation.
var RequiredEmployeeFields = []string{
	"employee_id", "name", "email", "last_working_day", "reason_for_leaving",
}

var registry = []types.StageTemplate{
	{
		ID:          StageInitialRequest,
		Name:        "Initial Request by Line Manager",
		Description: "Line Manager initiates offboarding request with employee details",
		Teams:       types.NewTeamSet(types.TeamLineManager),
		Timing:      "Day 0",
		Due:         types.DueRule{Anchor: types.AnchorCreated},
		Tasks: []types.TaskTemplate{
			{
				ID:             "capture_employee_details",
				Name:           "Capture Employee Details",
				Description:    "Collect employee ID, name, email, LWD, and reason for leaving",
				RequiredFields: RequiredEmployeeFields,
			},
			{
				ID:          "validate_request",
				Name:        "Validate Request",
				Description: "Ensure all required information is complete and accurate",
				DependsOn:   []string{"capture_employee_details"},
			},
		},
	},
	{
		ID:          StagePeopleOpsReview,
		Name:        "People Ops Review and Documentation",
		Description: "People Ops reviews details and secures required documents",
		Teams:       types.NewTeamSet(types.TeamPeopleOps),
		Timing:      "Within 1 day",
		Due:         types.DueRule{Anchor: types.AnchorCreated, Days: 1},
		Tasks: []types.TaskTemplate{
			{
				ID:          "review_employee_details",
				Name:        "Review Employee Details",
				Description: "Review and validate all submitted employee information",
				DependsOn:   []string{StageInitialRequest},
			},
			{
				ID:          "secure_signed_documents",
				Name:        "Secure Signed Documents",
				Description: "Collect and verify all required signed documents",
			},
			{
				ID:          "raise_it_ticket",
				Name:        "Raise IT Ticket (Azure)",
				Description: "Create IT ticket in Azure for access revocation and device collection",
			},
		},
	},
	{
		ID:          StagePreLWD,
		Name:        "Pre-LWD Processing (1 week before LWD)",
		Description: "Process termination in systems and handle equity/financial matters",
		Teams: types.NewTeamSet(
			types.TeamPeopleOps, types.TeamCorporateDevelopment, types.TeamFinance,
		),
		Timing: "1 week before LWD",
		Due:    types.DueRule{Anchor: types.AnchorLastWorkingDay, Days: -7},
		Tasks: []types.TaskTemplate{
			{
				ID:          "process_zenhr_termination",
				Name:        "Process Termination in ZenHR",
				Description: "Update employee status in ZenHR system",
				Team:        types.TeamPeopleOps,
			},
			{
				ID:          "cancel_insurance_gosi_qiwa",
				Name:        "Cancel Insurance, GOSI, Qiwa",
				Description: "Cancel employee benefits and government registrations",
				Team:        types.TeamPeopleOps,
			},
			{
				ID:          "calculate_eos",
				Name:        "Calculate EOS (End of Service)",
				Description: "Calculate end of service benefits",
				Team:        types.TeamPeopleOps,
			},
			{
				ID:          "notify_corporate_dev",
				Name:        "Notify Corporate Development",
				Description: "Inform Corporate Development team about employee departure",
				Team:        types.TeamPeopleOps,
			},
			{
				ID:          "handle_equity_matters",
				Name:        "Handle Equity Matters",
				Description: "Process equity-related matters and updates",
				Team:        types.TeamCorporateDevelopment,
				DependsOn:   []string{"notify_corporate_dev"},
			},
			{
				ID:          "update_personal_email",
				Name:        "Update Personal Email",
				Description: "Update employee's personal email for future communications",
				Team:        types.TeamCorporateDevelopment,
			},
			{
				ID:          "close_hala_card",
				Name:        "Close HALA Card",
				Description: "Close employee's HALA card account",
				Team:        types.TeamFinance,
			},
			{
				ID:          "settle_loans",
				Name:        "Settle Loans",
				Description: "Process any outstanding loan settlements",
				Team:        types.TeamFinance,
			},
		},
	},
	{
		ID:          StageLWD,
		Name:        "LWD Processing (IT & Facilities)",
		Description: "IT revokes access and collects devices, Facilities collects property",
		Teams:       types.NewTeamSet(types.TeamIT, types.TeamFacilities),
		Timing:      "On LWD",
		Due:         types.DueRule{Anchor: types.AnchorLastWorkingDay},
		Tasks: []types.TaskTemplate{
			{
				ID:          "revoke_system_access",
				Name:        "Revoke System Access",
				Description: "Revoke all system and application access",
				Team:        types.TeamIT,
			},
			{
				ID:          "backup_employee_files",
				Name:        "Backup Employee Files",
				Description: "Create backup of employee's work files and data",
				Team:        types.TeamIT,
			},
			{
				ID:          "collect_company_devices",
				Name:        "Collect Company Devices",
				Description: "Collect all company-issued devices (laptop, phone, etc.)",
				Team:        types.TeamIT,
			},
			{
				ID:          "collect_access_cards",
				Name:        "Collect Access Cards",
				Description: "Collect building and system access cards",
				Team:        types.TeamFacilities,
			},
			{
				ID:          "collect_parking_permits",
				Name:        "Collect Parking Permits",
				Description: "Collect parking permits and related items",
				Team:        types.TeamFacilities,
			},
			{
				ID:          "collect_other_property",
				Name:        "Collect Other Property",
				Description: "Collect any other company property (keys, equipment, etc.)",
				Team:        types.TeamFacilities,
			},
		},
	},
	{
		ID:          StageExitInterview,
		Name:        "Exit Interview (HR)",
		Description: "Conduct exit interview and collect feedback",
		Teams:       types.NewTeamSet(types.TeamHR),
		Timing:      "On LWD",
		Due:         types.DueRule{Anchor: types.AnchorLastWorkingDay},
		Tasks: []types.TaskTemplate{
			{
				ID:          "conduct_exit_interview",
				Name:        "Conduct Exit Interview",
				Description: "Conduct comprehensive exit interview with employee",
			},
			{
				ID:          "collect_feedback",
				Name:        "Collect Feedback",
				Description: "Document employee feedback and suggestions",
				DependsOn:   []string{"conduct_exit_interview"},
			},
			{
				ID:          "document_interview",
				Name:        "Document Interview",
				Description: "Create official documentation of exit interview",
				DependsOn:   []string{"collect_feedback"},
			},
		},
	},
	{
		ID:          StagePostLWD,
		Name:        "Post-LWD Processing (1 week after)",
		Description: "Process final payment and provide experience certificate",
		Teams:       types.NewTeamSet(types.TeamFinance, types.TeamPeopleOps),
		Timing:      "1 week after LWD",
		Due:         types.DueRule{Anchor: types.AnchorLastWorkingDay, Days: 7},
		Tasks: []types.TaskTemplate{
			{
				ID:          "process_final_payment",
				Name:        "Process Final Payment",
				Description: "Process and release final salary and benefits payment",
				Team:        types.TeamFinance,
			},
			{
				ID:          "provide_experience_certificate",
				Name:        "Provide Experience Certificate",
				Description: "Generate and provide experience certificate",
				Team:        types.TeamPeopleOps,
			},
			{
				ID:          "provide_reference_documents",
				Name:        "Provide Reference Documents",
				Description: "Prepare and provide reference letters and documents",
				Team:        types.TeamPeopleOps,
			},
		},
	},
	{
		ID:          StageFinalClosure,
		Name:        "Final Closure (People Ops)",
		Description: "Confirm all steps completed and close the process",
		Teams:       types.NewTeamSet(types.TeamPeopleOps),
		Timing:      "After all steps completed",
		Due:         types.DueRule{Anchor: types.AnchorLastWorkingDay, Days: 14},
		DependsOn: []string{
			StageInitialRequest, StagePeopleOpsReview, StagePreLWD,
			StageLWD, StageExitInterview, StagePostLWD,
		},
		Tasks: []types.TaskTemplate{
			{
				ID:          "verify_all_steps_completed",
				Name:        "Verify All Steps Completed",
				Description: "Review and verify all workflow steps are completed",
				DependsOn: []string{
					StageInitialRequest, StagePeopleOpsReview, StagePreLWD,
					StageLWD, StageExitInterview, StagePostLWD,
				},
			},
			{
				ID:          "close_jira_ticket",
				Name:        "Close Jira Ticket",
				Description: "Close the offboarding ticket in Jira system",
				DependsOn:   []string{"verify_all_steps_completed"},
			},
			{
				ID:          "archive_employee_files",
				Name:        "Archive Employee Files",
				Description: "Archive all employee-related files and documents",
				DependsOn:   []string{"verify_all_steps_completed"},
			},
		},
	},
}

// Templates returns the ordered stage templates. Each call returns a fresh
// deep copy.
func Templates() []types.StageTemplate {
	res := make([]types.StageTemplate, len(registry))
	for i, s := range registry {
		res[i] = s.Clone()
	}
	return res
}

// Stage returns a copy of the stage template with the given id.
func Stage(id string) (types.StageTemplate, bool) {
	for _, s := range registry {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return types.StageTemplate{}, false
}

// StageIDs returns the stage identifiers in workflow order.
func StageIDs() []string {
	ids := make([]string, len(registry))
	for i, s := range registry {
		ids[i] = s.ID
	}
	return ids
}

// TotalTasks returns the number of tasks across all stages.
func TotalTasks() int {
	n := 0
	for _, s := range registry {
		n += len(s.Tasks)
	}
	return n
}

// DependencyGraph maps stage id to task id to the prerequisite ids declared
// for that task. Prerequisites name either a task in the same stage or a
// whole stage.
func DependencyGraph() map[string]map[string][]string {
	graph := make(map[string]map[string][]string, len(registry))
	for _, s := range registry {
		tasks := make(map[string][]string, len(s.Tasks))
		for _, t := range s.Tasks {
			tasks[t.ID] = append([]string(nil), t.DependsOn...)
		}
		graph[s.ID] = tasks
	}
	return graph
}
