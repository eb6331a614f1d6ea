// Package extract turns catalog HTML into listing entries and stat fields.
// Extraction is pure: the same markup always yields the same result.
package extract
