// Package staging keeps outgoing binaries on local disk until the remote
// store has accepted them.
//
// # Overview
//
// A staged binary is a file under the staging directory plus a row in the
// local SQLite database (staged_attachments) keyed by message ID. Rows start
// as "pending" and become "uploaded" once the transfer engine returns a
// reference. The attachment service reads staged bytes for local-only
// lookups and for retrying a send without the original source.
//
// Key Types
//
//   - Repository: persistence contract for staged records
//   - SQLiteRepository: SQLite implementation over dbx.DBTX
//   - Area: files + records, kept consistent in one transaction
//
// Typical Usage
//
//	db, _ := staging.OpenDatabase(ctx, "staging.db")
//	area, _ := staging.NewArea(db, "staging", logger)
//	rec, _ := area.Stage(ctx, msgID, data, "image/jpeg")
//	_ = area.MarkUploaded(ctx, msgID, ref)
package staging
