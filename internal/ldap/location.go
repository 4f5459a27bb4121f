package ldap

// WellKnownComputersGUID is the well-known object GUID Active Directory assigns to the
// domain's default computer container, as published in wellKnownObjects on the naming
// context. The prefix format is "B:32:<GUID>:<DN>". Exported so internal/enroll's
// account-location resolver can scan wellKnownObjects values without duplicating the
// constant.
const WellKnownComputersGUID = "AA312825768811D1ADED00C04FD8D5CD"
