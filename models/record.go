package models

import (
	"database/sql"
	"time"
)

// Canonical column names. Every record is projected onto exactly these
// columns, in this order, before it enters the merge.
const (
	ColIdentifier            = "identifier"
	ColPlatform              = "platform"
	ColLink                  = "link"
	ColName                  = "name"
	ColPrice                 = "price"
	ColDescription           = "description"
	ColRegion                = "region"
	ColDateOfPublication     = "date_of_publication"
	ColStatus                = "status"
	ColObjectType            = "object_type"
	ColAdditionalInformation = "additional_information"

	// ColUploadDate is stamped by the pipeline, never by a collector.
	ColUploadDate = "upload_date"
)

// UploadDateLayout is the text form of upload_date in snapshot files.
const UploadDateLayout = "02.01.2006"

// CanonicalColumns is the fixed, ordered column set collectors are normalised to.
var CanonicalColumns = []string{
	ColIdentifier,
	ColPlatform,
	ColLink,
	ColName,
	ColPrice,
	ColDescription,
	ColRegion,
	ColDateOfPublication,
	ColStatus,
	ColObjectType,
	ColAdditionalInformation,
}

// SnapshotColumns is the header of a persisted snapshot file.
var SnapshotColumns = append(append([]string{}, CanonicalColumns...), ColUploadDate)

// Record is one listing from any source after normalisation.
type Record struct {
	Identifier            sql.NullString `db:"identifier"`
	Platform              sql.NullString `db:"platform"`
	Link                  sql.NullString `db:"link"`
	Name                  sql.NullString `db:"name"`
	Price                 sql.NullString `db:"price"`
	Description           sql.NullString `db:"description"`
	Region                sql.NullString `db:"region"`
	DateOfPublication     sql.NullString `db:"date_of_publication"`
	Status                sql.NullString `db:"status"`
	ObjectType            sql.NullString `db:"object_type"`
	AdditionalInformation sql.NullString `db:"additional_information"`
	UploadDate            time.Time      `db:"upload_date"`
}

// StoredRecord is a row of the parsed_data table.
type StoredRecord struct {
	ID int64 `db:"id"`
	Record
}

// Key identifies one real-world item across runs.
type Key struct {
	Platform   string
	Identifier string
}

// Key returns the composite (platform, identifier) key. Nulls key as "".
func (r Record) Key() Key {
	return Key{Platform: r.Platform.String, Identifier: r.Identifier.String}
}

// Values returns the canonical column values in CanonicalColumns order.
func (r Record) Values() []sql.NullString {
	return []sql.NullString{
		r.Identifier,
		r.Platform,
		r.Link,
		r.Name,
		r.Price,
		r.Description,
		r.Region,
		r.DateOfPublication,
		r.Status,
		r.ObjectType,
		r.AdditionalInformation,
	}
}

// field returns a pointer to the column's storage, or nil for unknown names.
func (r *Record) field(column string) *sql.NullString {
	switch column {
	case ColIdentifier:
		return &r.Identifier
	case ColPlatform:
		return &r.Platform
	case ColLink:
		return &r.Link
	case ColName:
		return &r.Name
	case ColPrice:
		return &r.Price
	case ColDescription:
		return &r.Description
	case ColRegion:
		return &r.Region
	case ColDateOfPublication:
		return &r.DateOfPublication
	case ColStatus:
		return &r.Status
	case ColObjectType:
		return &r.ObjectType
	case ColAdditionalInformation:
		return &r.AdditionalInformation
	}
	return nil
}

// Set assigns a canonical column. Unknown columns are ignored.
func (r *Record) Set(column string, v sql.NullString) {
	if f := r.field(column); f != nil {
		*f = v
	}
}

// Str is shorthand for a non-null sql.NullString.
func Str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
