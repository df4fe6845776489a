// Package vdoc holds the vector documents a vela scene is built from.
//
// A [Document] is an immutable tree of [Element] values with an id index.
// [Decode] reads one from SVG-flavoured XML; [Loader] implementations
// resolve external references, with [CachingLoader] decoding each URL once.
package vdoc
