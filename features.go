package main

// compiledFeatures tracks build-time feature flags via init() registration
// in the backend files selected by build tags; voodoo_vulkan_headless.go is
// the only file that registers one.
var compiledFeatures []string
