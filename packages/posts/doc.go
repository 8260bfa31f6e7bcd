// Package posts holds the posts resource model, its sample fixture and the
// built-in verification suite run by postcheck.
//
// The suite covers listing, membership of known ids, the unauthorized
// guarded route, creation with random data and the create, update and
// delete lifecycle of a single post.
package posts
