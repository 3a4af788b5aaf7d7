// Package server holds the HTTP server configuration and constants.
//
// While the main application entry point handles the server startup, this
// package defines the settings (port, API key) and the county profile the
// source system queries are written against.
package server
