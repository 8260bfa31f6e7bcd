// Package mock serves a fake posts backend for running the suite locally.
//
// Routes follow json-server conventions for a posts collection:
//
//	GET    /posts        list, ordered by id
//	GET    /posts/{id}   one post or 404
//	POST   /posts        201 with the stored post
//	PUT    /posts/{id}   200 with the given fields replaced, or 404
//	DELETE /posts/{id}   200 with an empty object, or 404
//
// The same routes are mounted under /664, where writes require the bearer
// token set with WithToken. Any other route answers 404.
package mock
