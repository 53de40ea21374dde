package model

// CaConf bundles the full CA configuration as loaded from, or written to, the
// persistence collaborator. The registry is seeded from one of these at boot
// and the bulk exporter serializes one per archive.
type CaConf struct {
	Cas         []*CaEntry         `json:"cas,omitempty"`
	Aliases     []CaAlias          `json:"ca_aliases,omitempty"`
	Signers     []*SignerEntry     `json:"signers,omitempty"`
	CrlSigners  []*CrlSignerEntry  `json:"crl_signers,omitempty"`
	Responders  []*ResponderEntry  `json:"responders,omitempty"`
	CmpControls []*CmpControlEntry `json:"cmp_controls,omitempty"`
	Requestors  []*RequestorEntry  `json:"requestors,omitempty"`
	Users       []*UserEntry       `json:"users,omitempty"`
	Profiles    []*ProfileEntry    `json:"profiles,omitempty"`
	Publishers  []*PublisherEntry  `json:"publishers,omitempty"`
	Sceps       []*ScepEntry       `json:"sceps,omitempty"`

	CaHasRequestors []CaHasRequestor `json:"ca_has_requestors,omitempty"`
	CaHasUsers      []CaHasUser      `json:"ca_has_users,omitempty"`
	CaHasProfiles   []CaHasProfile   `json:"ca_has_profiles,omitempty"`
	CaHasPublishers []CaHasPublisher `json:"ca_has_publishers,omitempty"`
}
