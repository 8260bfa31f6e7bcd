// Package assertions evaluates response predicates for postcheck steps.
//
// Subjects address parts of a response:
//   - status and duration
//   - header <Name>, matched case-insensitively
//   - body, or body.<path> using gjson paths (body.#, body.#.id, body[0].id)
//
// Operators compare, test membership (includes, includesAll), check
// presence (exists), shape (type, length, schema) or compare the response
// against the request payload (echoes).
package assertions
