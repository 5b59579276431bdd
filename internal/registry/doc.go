// Package registry records finished voice profiles so synthesis frontends
// can discover trained models. The default implementation keeps the registry
// in a single JSON document under the data root.
package registry
