// Package simpleblog resolves, caches and lists versioned blog content.
//
// A post is identified by a stable post identity and owns one version per
// language. Readers address content by slug, optionally qualified with a
// language hint; the Service resolves the slug to a version through the
// Resolver, serves the markdown body from a CacheStore when a fresh entry
// exists, and otherwise downloads it from a BlobStore and refills the cache.
//
// Repositories (memory, Postgres), blob stores (memory, filesystem, S3) and
// cache stores (memory, filesystem, Redis, SQLite) live in subpackages.
//
// Cache Keys
//
// Cache entries are keyed by the slug the reader asked for rather than by
// post or version identity, so links that predate version identities keep
// hitting the same entries. Renaming a slug orphans the old entry until it
// ages out; deleting a post invalidates every slug its variants carried.
package simpleblog
