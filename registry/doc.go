/*
Package registry resolves entity-type names to storage locations and names
record types for metrics.

Locations:
Maps entity type names to a physical resource and a storage kind. The map is
loaded once at startup and read-only afterwards:

	locations:
	  blog:
	    resource: blogposts
	    kind: table
	  blogcomments:
	    resource: blogcomments
	    kind: table
	  blogimages:
	    resource: blog-images
	    kind: blob

	locs, err := registry.LoadFile("registry.yaml", cfg.ResourceOverrides)
	loc, err := locs.Lookup("blog") // ConfigurationError if unknown

Record Names:
Associates Go types with the name used in metric names:

	registry.RegisterRecordName[blogmodels.Post]("Post")
	registry.RecordTypeName[*blogmodels.Post]() // "Post"

The record name registry is thread-safe and should be populated during
initialization, typically in init() functions.
*/
package registry
