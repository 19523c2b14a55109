package rpc

import "github.com/payplaces/directory/internal/model"

// buildMethodTable is the single source of truth for every RPC method
// this service exposes and the capability each one requires.
func (d *Dispatcher) buildMethodTable() map[string]methodDef {
	return map[string]methodDef{
		"getelement":                     {model.RoleUser, handleGetElement},
		"setelementtag":                  {model.RoleUser, handleSetElementTag},
		"removeelementtag":               {model.RoleUser, handleRemoveElementTag},
		"boostelement":                   {model.RoleUser, handleBoostElement},
		"addelementcomment":              {model.RoleUser, handleAddElementComment},
		"generateelementissues":          {model.RoleAdmin, handleGenerateElementIssues},
		"addarea":                        {model.RoleAdmin, handleAddArea},
		"getarea":                        {model.RoleUser, handleGetArea},
		"setareatag":                     {model.RoleAdmin, handleSetAreaTag},
		"removeareatag":                  {model.RoleAdmin, handleRemoveAreaTag},
		"gettrendingcountries":           {model.RoleUser, handleGetTrendingCountries},
		"gettrendingcommunities":         {model.RoleUser, handleGetTrendingCommunities},
		"removearea":                     {model.RoleAdmin, handleRemoveArea},
		"generateareaselementsmapping":   {model.RoleAdmin, handleGenerateAreasElementsMapping},
		"generatereports":                {model.RoleAdmin, handleGenerateReports},
		"generateelementicons":           {model.RoleAdmin, handleGenerateElementIcons},
		"generateelementcategories":      {model.RoleAdmin, handleGenerateElementCategories},
		"syncelements":                   {model.RoleAdmin, handleSyncElements},
		"addadmin":                       {model.RoleAdmin, handleAddAdmin},
		"addallowedaction":               {model.RoleAdmin, handleAddAllowedAction},
		"removeallowedaction":            {model.RoleAdmin, handleRemoveAllowedAction},
		"getuseractivity":                {model.RoleUser, handleGetUserActivity},
		"search":                         {model.RoleUser, handleSearch},
	}
}
