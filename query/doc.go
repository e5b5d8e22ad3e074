// Package query implements the predicate language used to filter SheetDB
// documents.
//
// A Query maps column names to conditions. Every column in the query must
// match for a document to match (there is no OR). A condition takes one of
// three shapes:
//
//	// structured operators, all of which must hold
//	query.Query{"status": query.Ops{"$ne": "CLOSED"}}
//
//	// comparison expression strings
//	query.Query{"score": ">= 90", "priority": "!= HIGH"}
//
//	// plain scalars, compared with loose equality
//	query.Query{"id": "42"}
//
// Supported operators are $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin,
// $contains, $startsWith, $endsWith and $regex. Expression strings accept
// ==, =, !=, >, >=, < and <= followed by optional spaces and an operand;
// numeric operands are compared as numbers.
//
// Equality is loose: numeric strings equal the numbers they spell and
// booleans compare as 1 and 0. Ordering compares two strings
// lexicographically and everything else numerically; a side that does not
// convert to a number makes the comparison false. See LooseEqual and
// Compare.
//
// Compile resolves each condition to its shape once and compiles $regex
// patterns, so a Matcher can be applied to many documents:
//
//	m, err := query.Compile(q)
//	if err != nil {
//	    return err // unknown operator or bad pattern
//	}
//	for _, doc := range docs {
//	    if m.Matches(doc) { ... }
//	}
package query
