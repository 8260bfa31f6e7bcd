// Package builtin provides the random value generators available to
// suite steps.
//
// Available functions:
//   - randomInt(max?): Random non-negative integer (JSON safe)
//   - random(min, max): Random integer in range
//   - loremWord(), loremWords(n), loremSentence(), loremText(): Placeholder text
//   - randomString(length), randomEmail(): Random strings
//   - uuid(), timestamp(), now(): Identifiers and clock values
//   - base64(value): Base64 encode a string
//
// Functions are invoked with the {{$functionName(args)}} syntax in step
// paths and bodies.
package builtin
