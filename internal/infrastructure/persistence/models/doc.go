// Package models holds the GORM row types and their conversions to and from
// the domain aggregates. Domain types carry no ORM tags.
//
// Tables: projects and project_stages (project.go); material_costs,
// supplier_invoices and invoice_lines (costing.go); documents,
// document_generations and document_number_counters (document.go).
package models
