// Package serializers translates between domain entities and the JSON
// representations of the v2 API.
//
// Every resource has a read projection, a pure function from an entity to
// its response struct. Writable resources also have a write serializer
// which is bound to an existing instance (update) or to none (create):
//
//	s := serializers.NewCampaignWriteSerializer(deps, rc, nil)
//	if err := s.Validate(ctx, body); err != nil {
//		// err is a ValidationErrors keyed by field name
//	}
//	campaign, err := s.Save(ctx)
//
// Validation runs in stages: each field is decoded and type checked, then
// struct tag rules are applied, then references are resolved against the
// org, and finally cross-field rules run once every field is valid. All
// errors of a stage are collected so a client sees every problem at once.
package serializers
