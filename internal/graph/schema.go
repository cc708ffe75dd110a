package graph

import (
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/bearfolio/bearfolio/internal/model"
	"github.com/bearfolio/bearfolio/internal/upload"
)

// profileToMap はProfileをGraphQLレスポンス用のmapに変換する。
func profileToMap(p *model.Profile) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"id":         p.ID,
		"userId":     p.UserID,
		"name":       p.Name,
		"headline":   p.Headline,
		"bio":        p.Bio,
		"location":   p.Location,
		"year":       p.Year,
		"fields":     p.Fields,
		"interests":  p.Interests,
		"strengths":  p.Strengths,
		"linksJson":  p.LinksJSON,
		"skillsJson": p.SkillsJSON,
		"avatarUrl":  p.AvatarURL,
		"state":      string(p.State),
		"onboarded":  p.Onboarded,
		"version":    p.Version,
		"createdAt":  p.CreatedAt.Format(time.RFC3339),
		"updatedAt":  p.UpdatedAt.Format(time.RFC3339),
	}
}

func profilesToMaps(profiles []*model.Profile) []map[string]any {
	out := make([]map[string]any, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileToMap(p))
	}
	return out
}

// itemToMap はPortfolioItemをGraphQLレスポンス用のmapに変換する。
// embeddingは内部表現のため公開しない。
func itemToMap(item *model.PortfolioItem) map[string]any {
	if item == nil {
		return nil
	}
	return map[string]any{
		"id":             item.ID,
		"profileId":      item.ProfileID,
		"type":           item.Type,
		"format":         item.Format,
		"title":          item.Title,
		"summary":        item.Summary,
		"tags":           item.Tags,
		"contentJson":    item.ContentJSON,
		"detailTemplate": item.DetailTemplate,
		"heroImageUrl":   item.HeroImageURL,
		"linksJson":      item.LinksJSON,
		"state":          string(item.State),
		"version":        item.Version,
		"createdAt":      item.CreatedAt.Format(time.RFC3339),
		"updatedAt":      item.UpdatedAt.Format(time.RFC3339),
	}
}

func itemsToMaps(items []*model.PortfolioItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, itemToMap(item))
	}
	return out
}

func opportunityToMap(o *model.Opportunity) map[string]any {
	if o == nil {
		return nil
	}
	return map[string]any{
		"id":             o.ID,
		"title":          o.Title,
		"org":            o.Org,
		"category":       o.Category,
		"fields":         o.Fields,
		"tags":           o.Tags,
		"desiredFormats": o.DesiredFormats,
		"status":         o.Status,
		"version":        o.Version,
		"createdAt":      o.CreatedAt.Format(time.RFC3339),
		"updatedAt":      o.UpdatedAt.Format(time.RFC3339),
	}
}

// --- 引数の取り出しヘルパー ---

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	n, _ := args[key].(int)
	return n
}

func stringListArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func inputArg(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}

func profileInputFromMap(m map[string]any) ProfileInput {
	return ProfileInput{
		Name:       stringArg(m, "name"),
		Headline:   stringArg(m, "headline"),
		Bio:        stringArg(m, "bio"),
		Location:   stringArg(m, "location"),
		Year:       intArg(m, "year"),
		Fields:     stringListArg(m, "fields"),
		Interests:  stringListArg(m, "interests"),
		Strengths:  stringListArg(m, "strengths"),
		LinksJSON:  stringArg(m, "linksJson"),
		SkillsJSON: stringArg(m, "skillsJson"),
		AvatarURL:  stringArg(m, "avatarUrl"),
	}
}

func itemInputFromMap(m map[string]any) PortfolioItemInput {
	return PortfolioItemInput{
		ProfileID:      stringArg(m, "profileId"),
		Type:           stringArg(m, "type"),
		Format:         stringArg(m, "format"),
		Title:          stringArg(m, "title"),
		Summary:        stringArg(m, "summary"),
		Tags:           stringListArg(m, "tags"),
		ContentJSON:    stringArg(m, "contentJson"),
		DetailTemplate: stringArg(m, "detailTemplate"),
		HeroImageURL:   stringArg(m, "heroImageUrl"),
		LinksJSON:      stringArg(m, "linksJson"),
	}
}

func opportunityInputFromMap(m map[string]any) OpportunityInput {
	return OpportunityInput{
		Title:          stringArg(m, "title"),
		Org:            stringArg(m, "org"),
		Category:       stringArg(m, "category"),
		Fields:         stringListArg(m, "fields"),
		Tags:           stringListArg(m, "tags"),
		DesiredFormats: stringListArg(m, "desiredFormats"),
		Status:         stringArg(m, "status"),
	}
}

// NewSchema はGraphQLスキーマを構築する。
func NewSchema(r *Resolver) (graphql.Schema, error) {
	stringList := graphql.NewList(graphql.String)

	profileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Profile",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"userId":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":       &graphql.Field{Type: graphql.String},
			"headline":   &graphql.Field{Type: graphql.String},
			"bio":        &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: graphql.String},
			"year":       &graphql.Field{Type: graphql.Int},
			"fields":     &graphql.Field{Type: stringList},
			"interests":  &graphql.Field{Type: stringList},
			"strengths":  &graphql.Field{Type: stringList},
			"linksJson":  &graphql.Field{Type: graphql.String},
			"skillsJson": &graphql.Field{Type: graphql.String},
			"avatarUrl":  &graphql.Field{Type: graphql.String},
			"state":      &graphql.Field{Type: graphql.String},
			"onboarded":  &graphql.Field{Type: graphql.Boolean},
			"version":    &graphql.Field{Type: graphql.Int},
			"createdAt":  &graphql.Field{Type: graphql.String},
			"updatedAt":  &graphql.Field{Type: graphql.String},
		},
	})

	itemType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PortfolioItem",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"profileId":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"type":           &graphql.Field{Type: graphql.String},
			"format":         &graphql.Field{Type: graphql.String},
			"title":          &graphql.Field{Type: graphql.String},
			"summary":        &graphql.Field{Type: graphql.String},
			"tags":           &graphql.Field{Type: stringList},
			"contentJson":    &graphql.Field{Type: graphql.String},
			"detailTemplate": &graphql.Field{Type: graphql.String},
			"heroImageUrl":   &graphql.Field{Type: graphql.String},
			"linksJson":      &graphql.Field{Type: graphql.String},
			"state":          &graphql.Field{Type: graphql.String},
			"version":        &graphql.Field{Type: graphql.Int},
			"createdAt":      &graphql.Field{Type: graphql.String},
			"updatedAt":      &graphql.Field{Type: graphql.String},
		},
	})

	opportunityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Opportunity",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"title":          &graphql.Field{Type: graphql.String},
			"org":            &graphql.Field{Type: graphql.String},
			"category":       &graphql.Field{Type: graphql.String},
			"fields":         &graphql.Field{Type: stringList},
			"tags":           &graphql.Field{Type: stringList},
			"desiredFormats": &graphql.Field{Type: stringList},
			"status":         &graphql.Field{Type: graphql.String},
			"version":        &graphql.Field{Type: graphql.Int},
			"createdAt":      &graphql.Field{Type: graphql.String},
			"updatedAt":      &graphql.Field{Type: graphql.String},
		},
	})

	presignedUploadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PresignedUpload",
		Fields: graphql.Fields{
			"url": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"key": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	profileInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProfileInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"headline":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"bio":        &graphql.InputObjectFieldConfig{Type: graphql.String},
			"location":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"year":       &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"fields":     &graphql.InputObjectFieldConfig{Type: stringList},
			"interests":  &graphql.InputObjectFieldConfig{Type: stringList},
			"strengths":  &graphql.InputObjectFieldConfig{Type: stringList},
			"linksJson":  &graphql.InputObjectFieldConfig{Type: graphql.String},
			"skillsJson": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"avatarUrl":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	itemInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PortfolioItemInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"profileId":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
			"type":           &graphql.InputObjectFieldConfig{Type: graphql.String},
			"format":         &graphql.InputObjectFieldConfig{Type: graphql.String},
			"title":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"summary":        &graphql.InputObjectFieldConfig{Type: graphql.String},
			"tags":           &graphql.InputObjectFieldConfig{Type: stringList},
			"contentJson":    &graphql.InputObjectFieldConfig{Type: graphql.String},
			"detailTemplate": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"heroImageUrl":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"linksJson":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	opportunityInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "OpportunityInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"org":            &graphql.InputObjectFieldConfig{Type: graphql.String},
			"category":       &graphql.InputObjectFieldConfig{Type: graphql.String},
			"fields":         &graphql.InputObjectFieldConfig{Type: stringList},
			"tags":           &graphql.InputObjectFieldConfig{Type: stringList},
			"desiredFormats": &graphql.InputObjectFieldConfig{Type: stringList},
			"status":         &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"students": &graphql.Field{
				Type: graphql.NewList(profileType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					profiles, err := r.Students(p.Context)
					if err != nil {
						return nil, err
					}
					return profilesToMaps(profiles), nil
				},
			},
			"student": &graphql.Field{
				Type: profileType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					profile, err := r.Student(p.Context, stringArg(p.Args, "id"))
					if err != nil {
						return nil, err
					}
					return profileToMap(profile), nil
				},
			},
			"me": &graphql.Field{
				Type: profileType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					profile, err := r.Me(p.Context)
					if err != nil {
						return nil, err
					}
					if profile == nil {
						return nil, nil
					}
					return profileToMap(profile), nil
				},
			},
			"portfolioItems": &graphql.Field{
				Type: graphql.NewList(itemType),
				Args: graphql.FieldConfigArgument{
					"profileId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, err := r.PortfolioItems(p.Context, stringArg(p.Args, "profileId"))
					if err != nil {
						return nil, err
					}
					return itemsToMaps(items), nil
				},
			},
			"portfolioItem": &graphql.Field{
				Type: itemType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					item, err := r.PortfolioItem(p.Context, stringArg(p.Args, "id"))
					if err != nil {
						return nil, err
					}
					return itemToMap(item), nil
				},
			},
			"opportunities": &graphql.Field{
				Type: graphql.NewList(opportunityType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					opps, err := r.Opportunities(p.Context)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]any, 0, len(opps))
					for _, o := range opps {
						out = append(out, opportunityToMap(o))
					}
					return out, nil
				},
			},
			"search": &graphql.Field{
				Type: graphql.NewList(itemType),
				Args: graphql.FieldConfigArgument{
					"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, err := r.Search(p.Context, stringArg(p.Args, "text"))
					if err != nil {
						return nil, err
					}
					return itemsToMaps(items), nil
				},
			},
			"semanticSearch": &graphql.Field{
				Type: graphql.NewList(itemType),
				Args: graphql.FieldConfigArgument{
					"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, err := r.SemanticSearch(p.Context, stringArg(p.Args, "text"))
					if err != nil {
						return nil, err
					}
					return itemsToMaps(items), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createProfile": &graphql.Field{
				Type: profileType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(profileInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					profile, err := r.CreateProfile(p.Context, profileInputFromMap(inputArg(p.Args, "input")))
					if err != nil {
						return nil, err
					}
					return profileToMap(profile), nil
				},
			},
			"updateProfile": &graphql.Field{
				Type: profileType,
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"version": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"input":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(profileInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					profile, err := r.UpdateProfile(p.Context,
						stringArg(p.Args, "id"), intArg(p.Args, "version"),
						profileInputFromMap(inputArg(p.Args, "input")))
					if err != nil {
						return nil, err
					}
					return profileToMap(profile), nil
				},
			},
			"publishProfile": &graphql.Field{
				Type: profileType,
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"version": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					profile, err := r.PublishProfile(p.Context, stringArg(p.Args, "id"), intArg(p.Args, "version"))
					if err != nil {
						return nil, err
					}
					return profileToMap(profile), nil
				},
			},
			"submitPortfolioItem": &graphql.Field{
				Type: itemType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(itemInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					item, err := r.SubmitPortfolioItem(p.Context, itemInputFromMap(inputArg(p.Args, "input")))
					if err != nil {
						return nil, err
					}
					return itemToMap(item), nil
				},
			},
			"updatePortfolioItem": &graphql.Field{
				Type: itemType,
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"version": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"input":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(itemInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					item, err := r.UpdatePortfolioItem(p.Context,
						stringArg(p.Args, "id"), intArg(p.Args, "version"),
						itemInputFromMap(inputArg(p.Args, "input")))
					if err != nil {
						return nil, err
					}
					return itemToMap(item), nil
				},
			},
			"publishPortfolioItem": &graphql.Field{
				Type: itemType,
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"version": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					item, err := r.PublishPortfolioItem(p.Context, stringArg(p.Args, "id"), intArg(p.Args, "version"))
					if err != nil {
						return nil, err
					}
					return itemToMap(item), nil
				},
			},
			"deletePortfolioItem": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return r.DeletePortfolioItem(p.Context, stringArg(p.Args, "id"))
				},
			},
			"createOpportunity": &graphql.Field{
				Type: opportunityType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(opportunityInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					opp, err := r.CreateOpportunity(p.Context, opportunityInputFromMap(inputArg(p.Args, "input")))
					if err != nil {
						return nil, err
					}
					return opportunityToMap(opp), nil
				},
			},
			"requestUploadUrl": &graphql.Field{
				Type: presignedUploadType,
				Args: graphql.FieldConfigArgument{
					"kind":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"contentType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"size":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					presigned, err := r.RequestUploadURL(p.Context,
						stringArg(p.Args, "kind"), stringArg(p.Args, "contentType"), int64(intArg(p.Args, "size")))
					if err != nil {
						return nil, err
					}
					return presignedToMap(presigned), nil
				},
			},
			"impersonateUser": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return r.ImpersonateUser(p.Context, stringArg(p.Args, "userId"))
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to build schema: %w", err)
	}
	return schema, nil
}

func presignedToMap(p *upload.PresignedUpload) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"url": p.URL,
		"key": p.Key,
	}
}
