// Package SheetDB provides a Git-backed document table store with a
// MongoDB-style query language.
//
// Each table is a grid: a header row of column names followed by data rows.
// Rows are read as schemaless documents, filtered with predicates such as
// {"score": {"$gte": 90}} or {"score": ">= 90"}, and written back cell by
// cell. Every write is a Git commit, so the full history of each table is
// kept and can be pushed to or pulled from a remote.
//
// # Quick Start
//
// Create an in-memory database:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	sheets := SheetDB.Open(persistence)
//	engine := sheets.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.CreateTable("tasks", []string{"status", "score"})
//	engine.Insert("tasks", map[string]any{"status": "OPEN", "score": 85})
//
//	docs, _ := engine.Select("tasks", query.Query{
//	    "status": query.Ops{"$ne": "CLOSED"},
//	    "score":  ">= 80",
//	}, core.Options{OrderBy: "score", Limit: 10})
//
// # Operators
//
// Structured conditions support $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin,
// $contains, $startsWith, $endsWith and $regex. A string starting with a
// comparison operator (==, =, !=, >, >=, <, <=) is parsed as an expression;
// any other value is compared for equality. Equality is loose: "85" equals
// 85 and true equals 1.
package SheetDB
