// Package main hosts the nutrition-planner CLI.
//
// Plan commands load the recipe corpus and the plan stored for --week,
// run one operation against an app session and save the result before
// exiting. Maintenance commands (import, scrape, migrate, metrics-cleanup)
// only open the database.
package main
