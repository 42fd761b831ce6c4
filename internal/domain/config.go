package domain

// KeyPrefix namespaces all keys this service writes to the store.
const KeyPrefix = "atlas:"
