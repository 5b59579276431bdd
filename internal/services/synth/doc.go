// Package synth is the HTTP client for the voice synthesis service that
// serves trained models.
//
// The client covers the three calls the pipeline needs after training:
// liveness probing (with a bounded ready-wait for service startup), loading
// freshly trained checkpoints into the service, and rendering a preview
// phrase to wav bytes. Preview phrases are canned per supported language and
// matched with golang.org/x/text so region variants land on the right
// script.
package synth
