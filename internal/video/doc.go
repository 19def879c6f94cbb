// Package video talks to the Mux video API: direct uploads for the admin
// studio, upload and asset status, webhook signature checks and a poller
// that waits for an upload to become playable.
package video
