package remediate

import (
	"fmt"
	"strconv"
	"strings"
)

// Classify reports the inputs the priority scorer's difficulty formula
// needs from a version delta: whether it crosses a major version (or the
// ecosystem's equivalent, e.g. Cargo's pre-1.0 minor bump) and how many
// major versions it jumps. It shares parseSemanticVersion with
// breakingChanges so the two never disagree about what counts as a
// major bump.
func Classify(ecosystem, current, fixed string) (breaking bool, majorJumps int) {
	curMajor, curMinor, curOK := parseSemanticVersion(current)
	fixMajor, fixMinor, fixOK := parseSemanticVersion(fixed)
	if !curOK || !fixOK {
		return false, 0
	}
	if ecosystem == "Cargo" && curMajor == 0 && fixMajor == 0 && fixMinor > curMinor {
		return true, 1
	}
	if fixMajor > curMajor {
		return true, fixMajor - curMajor
	}
	return false, 0
}

// breakingChanges classifies the semver delta from current to fixed and
// renders the corresponding warning text, per spec §4.9. Go's own
// pre-/post-v2 import-path convention and Rust's pre-1.0 semver quirk are
// folded into the same major/minor/patch classification the other
// ecosystems use, since both only change the *meaning* of a major bump,
// not how it's detected.
func breakingChanges(ecosystem, pkg, current, fixed string) string {
	curMajor, curMinor, curOK := parseSemanticVersion(current)
	fixMajor, fixMinor, fixOK := parseSemanticVersion(fixed)

	// Pre-1.0 Cargo crates treat a minor bump as a major one: semver
	// gives 0.x releases no compatibility guarantee between minors.
	if curOK && fixOK && ecosystem == "Cargo" && curMajor == 0 && fixMajor == 0 && fixMinor > curMinor {
		return majorVersionWarning(ecosystem, pkg, current, fixed)
	}

	if !curOK {
		return fmt.Sprintf(
			"[!] Version change (%s → %s)\n\n"+
				"Cannot parse semantic version numbers. Please review the changelog manually.\n"+
				"Version formats that don't follow semantic versioning (X.Y.Z) require careful review:\n"+
				"1. Check the library's release notes\n"+
				"2. Review breaking changes documentation\n"+
				"3. Test thoroughly in a staging environment",
			current, fixed)
	}
	if !fixOK {
		return fmt.Sprintf(
			"[!] Version change (%s → %s)\n\n"+
				"Cannot parse target version number. Please review the changelog manually.",
			current, fixed)
	}

	switch {
	case fixMajor > curMajor:
		return majorVersionWarning(ecosystem, pkg, current, fixed)
	case fixMajor == curMajor:
		if fixMinor > curMinor {
			return minorVersionWarning(current, fixed)
		}
		return patchVersionWarning(current, fixed)
	default:
		return fmt.Sprintf(
			"[!] Version change (%s → %s)\n\n"+
				"This version change doesn't follow typical semantic versioning.\n"+
				"Please review the library's changelog carefully before upgrading.",
			current, fixed)
	}
}

// parseSemanticVersion extracts (major, minor) from the leading X.Y of a
// version string, ignoring any patch component and any pre-release/build
// suffix (a "-" or "+" and everything after it). It returns ok=false when
// the leading numeric pair can't be parsed, matching the boundary behavior
// of pre-1.0 and otherwise non-semver version strings.
func parseSemanticVersion(v string) (major, minor int, ok bool) {
	core := v
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	core = strings.TrimPrefix(core, "v")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	maj, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return maj, min, true
}

func majorVersionWarning(ecosystem, pkg, current, fixed string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[!] MAJOR VERSION UPGRADE (%s → %s)\n\n"+
		"This is a major version upgrade which may include breaking changes:\n\n"+
		"- API changes: Methods may be removed, renamed, or have different signatures\n"+
		"- Deprecated features: Previously deprecated APIs may be removed\n"+
		"- Behavioral changes: Existing functionality may behave differently\n"+
		"- Configuration changes: Configuration file formats or options may change\n"+
		"- Dependency changes: Transitive dependencies may change significantly\n\n",
		current, fixed)

	lower := strings.ToLower(pkg)
	switch {
	case strings.Contains(lower, "spring"):
		b.WriteString("Spring Framework specific considerations:\n" +
			"- Check for configuration property changes\n" +
			"- Review deprecated @Bean definitions\n" +
			"- Update Spring Boot parent version if applicable\n" +
			"- Test all integration points thoroughly\n\n")
	case strings.Contains(lower, "jackson"):
		b.WriteString("Jackson specific considerations:\n" +
			"- Verify JSON serialization/deserialization behavior\n" +
			"- Check for ObjectMapper configuration changes\n" +
			"- Test custom serializers and deserializers\n" +
			"- Review annotation processing changes\n\n")
	case strings.Contains(lower, "log4j"):
		b.WriteString("Log4j specific considerations:\n" +
			"- Update log4j2.xml configuration if needed\n" +
			"- Review appender and filter configurations\n" +
			"- Check for plugin compatibility\n" +
			"- Verify logging output format\n\n")
	case strings.Contains(lower, "junit"):
		b.WriteString("JUnit specific considerations:\n" +
			"- Update test annotations (@Test, @Before, @After)\n" +
			"- Review assertion methods (may have changed)\n" +
			"- Check for runner compatibility\n" +
			"- Verify test lifecycle hooks\n\n")
	case strings.Contains(lower, "hibernate"), strings.Contains(lower, "jakarta.persistence"):
		b.WriteString("Hibernate/JPA specific considerations:\n" +
			"- Review entity mapping annotations\n" +
			"- Check for query language changes (HQL/JPQL)\n" +
			"- Verify transaction management behavior\n" +
			"- Test database migrations carefully\n\n")
	case ecosystem == "Go":
		b.WriteString("Go module specific considerations:\n" +
			"- A major version bump beyond v1 changes the import path (/v2, /v3, ...)\n" +
			"- Update every import statement, not just go.mod\n" +
			"- Run go mod tidy after updating imports\n\n")
	}

	b.WriteString("Recommended actions before upgrading:\n" +
		"1. Review the library's changelog and migration guide\n" +
		"2. Run all unit and integration tests\n" +
		"3. Test in a staging environment first\n" +
		"4. Have a rollback plan ready\n" +
		"5. Update any dependent libraries if needed\n" +
		"6. Document any code changes required for the upgrade")

	return b.String()
}

func minorVersionWarning(current, fixed string) string {
	return fmt.Sprintf(
		"[i] Minor version upgrade (%s → %s)\n\n"+
			"This is a minor version upgrade which should be backward compatible but may include:\n"+
			"- New features and APIs\n"+
			"- Deprecation warnings for future removal\n"+
			"- Performance improvements\n"+
			"- Bug fixes\n\n"+
			"Recommended actions:\n"+
			"1. Review release notes for new deprecations\n"+
			"2. Run full test suite to verify compatibility\n"+
			"3. Check for any new security recommendations",
		current, fixed)
}

func patchVersionWarning(current, fixed string) string {
	return fmt.Sprintf(
		"[+] Patch version upgrade (%s → %s)\n\n"+
			"This is a patch version upgrade which should be fully backward compatible.\n"+
			"It typically includes:\n"+
			"- Bug fixes\n"+
			"- Security patches\n"+
			"- Performance improvements\n\n"+
			"This upgrade should be safe, but it's still recommended to:\n"+
			"1. Run your test suite\n"+
			"2. Review the changelog for the specific fixes included",
		current, fixed)
}
