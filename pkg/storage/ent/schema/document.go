// Package schema declares the SQL tables behind the ent storage driver.
package schema

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// DocumentsTableName is the table holding every stored document.
const DocumentsTableName = "documents"

var (
	// DocumentsColumns holds the columns of the documents table.
	DocumentsColumns = []*schema.Column{
		// seq is the store-wide insertion sequence and primary key
		{Name: "seq", Type: field.TypeInt64, Increment: true},

		// collection groups documents the way a container would
		{Name: "collection", Type: field.TypeString, Size: 255},

		// body is the document serialized as JSON
		{Name: "body", Type: field.TypeString, Size: 2147483647},
	}

	// DocumentsTable holds the schema information for the documents table.
	DocumentsTable = &schema.Table{
		Name:       DocumentsTableName,
		Columns:    DocumentsColumns,
		PrimaryKey: []*schema.Column{DocumentsColumns[0]},
		Indexes: []*schema.Index{
			{
				// Paged scans filter on collection and walk seq in order
				Name:    "document_collection_seq",
				Unique:  true,
				Columns: []*schema.Column{DocumentsColumns[1], DocumentsColumns[0]},
			},
		},
	}

	// Tables holds every table managed by the driver.
	Tables = []*schema.Table{
		DocumentsTable,
	}
)
