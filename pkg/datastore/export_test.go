package datastore

var ParseDate = parseDate
