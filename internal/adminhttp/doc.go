// Package adminhttp serves the admin JSON API used by the studio: content
// read and save, session login and logout, video and image uploads, and the
// video pipeline webhook.
//
// Every handler answers JSON. Failures carry a single "error" field; auth
// failures never say why.
package adminhttp
