package domain

// KeyPrefix namespaces every key this service writes to the shared store.
const KeyPrefix = "magnus:"
