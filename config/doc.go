// Package config loads the koolrun YAML configuration.
//
//	host:
//	  module: kool
//	memory:
//	  limit: 64MiB
//	heap:
//	  allocator: arena      # or guest, or guest:<export>
//	  export: GC_malloc
//	  limit: 16MiB
//	strings:
//	  equality: terminator  # or sized
//	logging:
//	  level: info
//	  format: console
//
// Sizes accept a plain byte count or a unit; KB and KiB are both 1024 bytes.
package config
