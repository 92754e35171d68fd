// Package notify sends a short run summary to chat and notification
// services. Delivery failures are returned to the caller, which logs them;
// a failed notification never fails a run.
package notify
