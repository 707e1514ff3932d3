// Package service contains application services that orchestrate domain
// logic, persistence, and storage without binding to HTTP concerns.
package service
