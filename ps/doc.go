// Package ps provides the persistence layer for SheetDB.
//
// The persistence layer is backed by Git, using go-git for storage. Each
// table is one JSON blob (<name>.sheet) at the repository root holding its
// header row and data rows. Every write operation reads the blob from HEAD,
// changes it and creates a Git commit, so the full history of every sheet is
// kept.
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Sheets
//
// Sheets returns a store that commits as the given identity and satisfies
// the engine's table store:
//
//	store := persistence.Sheets(core.Identity{Name: "me", Email: "me@example.com"})
//	created, err := store.CreateTable("tasks", []string{"id", "status"})
//
// # Batches
//
// A batch edits sheets in memory and records every change as one commit:
//
//	batch, err := persistence.BeginBatch(identity)
//	tasks, err := batch.GetTable("tasks")
//	batch.WriteCell(tasks, 2, 2, "CLOSED")
//	txn, err := batch.Commit("Closing tasks")
//
// SheetStore.Batch wraps this for the engine, which uses it so an update,
// delete or import lands as a single commit.
//
// # Branches and Snapshots
//
// Branches are plain Git branches. Checkout moves HEAD, and every later read
// and write uses that branch; Merge only fast-forwards:
//
//	persistence.Branch("feature", nil)
//	persistence.Checkout("feature")
//	persistence.Merge("feature")
//
// Snapshots are tags. Recover and RestoreSheet bring old state back as a new
// commit, so history is never rewritten:
//
//	persistence.Snapshot("v1", nil)
//	persistence.Recover("v1", identity)
//	persistence.RestoreSheet("tasks", txn, identity)
//
// # Remotes
//
// The repository can be pushed to and pulled from any Git remote:
//
//	persistence.AddRemote("origin", "https://github.com/me/data.git")
//	persistence.Push("origin", "", &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: token})
package ps
