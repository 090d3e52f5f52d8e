// Package cmd implements the hitboard CLI commands using Cobra.
//
// Available commands:
//   - serve: Start the HTTP gateway for runs, history and reports
//   - run: Run the collection once and record the result
//   - history: Show the run history or its statistics
//   - reports: List rendered reports
//   - version: Show hitboard version information
//
// Configuration comes from hitboard.yaml overlaid by the process
// environment. A .env file only fills in variables that are not set.
package cmd
