package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeFindUnused() string {
	return `Finds public and protected methods of the Jenkins core that no plugin and no part of the core itself ever calls.

USE WHEN:
- Deciding whether a core API can be deprecated or removed
- Checking that a method scheduled for removal has no remaining callers
- Estimating the unused surface of a core package before a refactoring

INTERPRETING RESULTS:
- A method is reported only if no call site resolves to it, no method handle refers to it and its bare name appears in no Jelly template
- Calls are resolved polymorphically: a call on a supertype keeps every override in core subclasses alive
- Template matching is by substring, so short names are rarely reported
- Methods overriding JDK contracts (toString, run, compareTo, ...) are never candidates
- Failures lists plugins that could not be read; their calls were not counted, so a result is only as complete as the corpus
- Quarantined artifacts were unreadable in an earlier run and are skipped until they change

METRICS RETURNED:
- methods: class, name, descriptor and a source-like signature for each unused method
- summary: candidates seeded, total unused, artifacts analyzed and failed, counts by package
- failures: abandoned artifacts with the error and quarantine state`
}

func describeListQuarantined() string {
	return `Lists plugin artifacts skipped by analysis because an earlier run could not read them.

USE WHEN:
- A find_unused_methods result reports quarantined failures
- Checking which downloads need to be fetched again

INTERPRETING RESULTS:
- An entry is dropped automatically once the file content changes or the TTL expires
- reason holds the read error from the run that quarantined the file

METRICS RETURNED:
- entries: artifact path, content hash, reason and timestamp`
}
