// Package gcs implements a transcript source backed by Google Cloud.
// Episode metadata lives as JSON objects under a bucket prefix; transcript
// text is pulled from the Google Doc each metadata record names.
package gcs
