package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/wayfarer/internal/core/usecases"
)

// buildSchema creates the read-only GraphQL schema over itineraries, render
// plans and subdivision maps. Mutations stay on the REST API.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"kind":     &graphql.Field{Type: graphql.String},
			"position": &graphql.Field{Type: geoPointType},
			"ordinal":  &graphql.Field{Type: graphql.Int},
			"note":     &graphql.Field{Type: graphql.String},
		},
	})

	dayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Day",
		Fields: graphql.Fields{
			"number":    &graphql.Field{Type: graphql.Int},
			"date":      &graphql.Field{Type: graphql.DateTime},
			"waypoints": &graphql.Field{Type: graphql.NewList(waypointType)},
		},
	})

	itineraryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Itinerary",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"country":    &graphql.Field{Type: graphql.String},
			"start_date": &graphql.Field{Type: graphql.DateTime},
			"end_date":   &graphql.Field{Type: graphql.DateTime},
			"days":       &graphql.Field{Type: graphql.NewList(dayType)},
			"version":    &graphql.Field{Type: graphql.Int},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"waypoint_id": &graphql.Field{Type: graphql.String},
			"label":       &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"position":    &graphql.Field{Type: geoPointType},
			"color":       &graphql.Field{Type: graphql.String},
		},
	})

	polylineType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Polyline",
		Fields: graphql.Fields{
			"from_waypoint_id": &graphql.Field{Type: graphql.String},
			"to_waypoint_id":   &graphql.Field{Type: graphql.String},
			"color":            &graphql.Field{Type: graphql.String},
			"path":             &graphql.Field{Type: graphql.NewList(geoPointType)},
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
		},
	})

	renderPlanType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RenderPlan",
		Fields: graphql.Fields{
			"day":                    &graphql.Field{Type: graphql.Int},
			"rebuild":                &graphql.Field{Type: graphql.Boolean},
			"markers":                &graphql.Field{Type: graphql.NewList(markerType)},
			"polylines":              &graphql.Field{Type: graphql.NewList(polylineType)},
			"total_distance_meters":  &graphql.Field{Type: graphql.Float},
			"total_duration_seconds": &graphql.Field{Type: graphql.Float},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"name":    &graphql.Field{Type: graphql.String},
			"d":       &graphql.Field{Type: graphql.String},
			"state":   &graphql.Field{Type: graphql.String},
			"hovered": &graphql.Field{Type: graphql.Boolean},
			"fill":    &graphql.Field{Type: graphql.String},
			"stroke":  &graphql.Field{Type: graphql.String},
		},
	})

	boundaryViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundaryView",
		Fields: graphql.Fields{
			"country": &graphql.Field{Type: graphql.String},
			"width":   &graphql.Field{Type: graphql.Float},
			"height":  &graphql.Field{Type: graphql.Float},
			"regions": &graphql.Field{Type: graphql.NewList(regionType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"itinerary": &graphql.Field{
				Type:        itineraryType,
				Description: "Get an itinerary by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Schedule.Get(p.Context, p.Args["id"].(string))
				},
			},
			"itineraries": &graphql.Field{
				Type:        graphql.NewList(itineraryType),
				Description: "List itineraries, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					items, _, err := deps.Schedule.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return items, err
				},
			},
			"renderPlan": &graphql.Field{
				Type:        renderPlanType,
				Description: "Markers, polylines and totals for one day",
				Args: graphql.FieldConfigArgument{
					"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"day": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.MapView.Sync(p.Context, p.Args["id"].(string), usecases.SyncOptions{Day: p.Args["day"].(int)})
				},
			},
			"regions": &graphql.Field{
				Type:        boundaryViewType,
				Description: "Styled subdivisions for an itinerary's country",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Regions.View(p.Args["id"].(string))
				},
			},
			"boundaries": &graphql.Field{
				Type:        boundaryViewType,
				Description: "Neutral subdivision map of a country",
				Args: graphql.FieldConfigArgument{
					"country": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					set, err := deps.Boundaries.Build(p.Context, p.Args["country"].(string))
					if err != nil {
						return nil, err
					}
					view := set.View(nil, deps.Palette)
					return &view, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
