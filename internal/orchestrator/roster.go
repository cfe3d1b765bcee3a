// Package orchestrator drives the chat flow: it builds the system
// prompt from stored rules, calls the LLM, parses intent blocks out of
// the reply and executes them in order.
package orchestrator

// DepartmentRoster is the fixed set of departments WorkPal manages.
var DepartmentRoster = []string{
	"HR",
	"Accounts",
	"Sales",
	"Admin",
	"Law",
	"Dev Team",
	"Product Team",
}
