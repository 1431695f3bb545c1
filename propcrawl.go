// Package propcrawl crawls real-estate listings from domain.com.au and
// stores them as normalized suburbs, properties and schools.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, rod/).
package propcrawl
