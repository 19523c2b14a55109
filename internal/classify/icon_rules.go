// Package classify implements the two pure tag-to-string classifiers
// the sync engine runs on every created or updated point: the Android
// icon identifier and the coarse category. Both are ordered cascades
// of equality tests, later and more specific conditions overriding
// earlier, more general defaults — no I/O, no external lookup.
package classify

import "github.com/payplaces/directory/internal/model"

// Icon returns the Android icon identifier for a point's upstream
// tags, or "question_mark" if nothing in the cascade matches.
func Icon(tags model.Tags) string {
	amenity := tags.String("amenity")
	cuisine := tags.String("cuisine")
	tourism := tags.String("tourism")
	shop := tags.String("shop")
	office := tags.String("office")
	leisure := tags.String("leisure")
	healthcare := tags.String("healthcare")
	building := tags.String("building")
	sport := tags.String("sport")
	craft := tags.String("craft")
	company := tags.String("company")
	telecom := tags.String("telecom")
	school := tags.String("school")
	place := tags.String("place")
	landuse := tags.String("landuse")
	club := tags.String("club")
	playground := tags.String("playground")
	industrial := tags.String("industrial")
	historic := tags.String("historic")

	icon := "question_mark"

	set := func(id string) { icon = id }

	if landuse == "retail" {
		set("storefront")
	}
	if building == "commercial" {
		set("business")
	}
	if building == "office" {
		set("business")
	}
	if building == "retail" {
		set("storefront")
	}
	if building == "church" {
		set("church")
	}
	if building == "school" {
		set("school")
	}
	if building == "industrial" {
		set("factory")
	}
	if office != "" {
		set("business")
	}

	switch office {
	case "company":
		set("business")
	case "it":
		set("computer")
	case "lawyer":
		set("balance")
	case "accountant":
		set("attach_money")
	case "architect":
		set("architecture")
	case "educational_institution":
		set("school")
	case "advertising_agency":
		set("business")
	case "estate_agent":
		set("home")
	case "therapist":
		set("medical_services")
	case "coworking":
		set("group")
	case "physician":
		set("medical_services")
	case "marketing":
		set("business")
	case "surveyor":
		set("business")
	case "financial":
		set("attach_money")
	case "association":
		set("group")
	case "engineer":
		set("engineering")
	case "telecommunication":
		set("cell_tower")
	case "coworking_space":
		set("group")
	case "construction":
		set("engineering")
	case "tax_advisor":
		set("attach_money")
	case "construction_company":
		set("engineering")
	case "travel_agent":
		set("tour")
	case "insurance":
		set("business")
	case "ngo":
		set("business")
	case "newspaper":
		set("newspaper")
	case "trade":
		set("business")
	case "private":
		set("business")
	case "guide":
		set("tour")
	case "foundation":
		set("business")
	case "web_design":
		set("design_services")
	case "graphic_design":
		set("design_services")
	case "limousine_service":
		set("local_taxi")
	}

	switch tourism {
	case "hotel":
		set("hotel")
	case "attraction":
		set("tour")
	case "guest_house":
		set("hotel")
	case "apartment":
		set("hotel")
	case "hostel":
		set("hotel")
	case "chalet":
		set("chalet")
	case "camp_site":
		set("camping")
	case "gallery":
		set("palette")
	case "artwork":
		set("palette")
	case "information":
		set("info_outline")
	case "museum":
		set("museum")
	case "motel":
		set("hotel")
	case "spa":
		set("spa")
	case "theme_park":
		set("attractions")
	case "alpine_hut":
		set("cottage")
	}

	if shop != "" {
		set("storefront")
	}

	switch shop {
	case "computer":
		set("computer")
	case "clothes":
		set("storefront")
	case "jewelry":
		set("diamond")
	case "hairdresser":
		set("content_cut")
	case "electronics":
		set("computer")
	case "supermarket":
		set("local_grocery_store")
	case "car_repair":
		set("car_repair")
	case "beauty":
		set("spa")
	case "books":
		set("menu_book")
	case "furniture":
		set("chair")
	case "convenience":
		set("local_grocery_store")
	case "gift":
		set("card_giftcard")
	case "travel_agency":
		set("luggage")
	case "mobile_phone":
		set("smartphone")
	case "tobacco":
		set("smoking_rooms")
	case "car":
		set("directions_car")
	case "bakery":
		set("bakery_dining")
	case "massage":
		set("spa")
	case "florist":
		set("local_florist")
	case "bicycle":
		set("pedal_bike")
	case "e-cigarette":
		set("vaping_rooms")
	case "optician":
		set("visibility")
	case "photo":
		set("photo_camera")
	case "deli":
		set("tapas")
	case "sports":
		set("sports")
	case "farm":
		set("storefront")
	case "art":
		set("palette")
	case "music":
		set("music_note")
	case "hardware":
		set("hardware")
	case "copyshop":
		set("local_printshop")
	case "wine":
		set("wine_bar")
	case "shoes":
		set("storefront")
	case "alcohol":
		set("liquor")
	case "toys":
		set("toys")
	case "greengrocer":
		set("storefront")
	case "car_parts":
		set("directions_car")
	case "tatoo":
		set("storefront")
	case "pawnbroker":
		set("attach_money")
	case "garden_centre":
		set("local_florist")
	case "butcher":
		set("storefront")
	case "variety_store":
		set("storefront")
	case "printing":
		set("local_printshop")
	case "laundry":
		set("local_laundry_service")
	case "kiosk":
		set("storefront")
	case "pet":
		set("pets")
	case "cannabis":
		set("grass")
	case "boutique":
		set("storefront")
	case "stationery":
		set("edit")
	case "pastry":
		set("bakery_dining")
	case "mall":
		set("local_mall")
	case "hifi":
		set("music_note")
	case "estate_agent":
		set("home")
	case "cosmetics":
		set("spa")
	case "coffee":
		set("coffee")
	case "erotic":
		set("adult_content")
	case "confectionery":
		set("cake")
	case "beverages":
		set("liquor")
	case "video_games":
		set("games")
	case "newsagent":
		set("newspaper")
	case "interior_decoration":
		set("design_services")
	case "electrical":
		set("electrical_services")
	case "doityourself":
		set("hardware")
	case "antiques":
		set("storefront")
	case "watches":
		set("watch")
	case "trade":
		set("storefront")
	case "tea":
		set("emoji_food_beverage")
	case "scuba_diving":
		set("scuba_diving")
	case "musical_instrument":
		set("music_note")
	case "dairy":
		set("storefront")
	case "chocolate":
		set("storefront")
	case "anime":
		set("storefront")
	case "tyres":
		set("trip_origin")
	case "second_hand":
		set("storefront")
	case "perfumery":
		set("storefront")
	case "nutrition_supplements":
		set("storefront")
	case "motorcycle":
		set("two_wheeler")
	case "lottery":
		set("storefront")
	case "locksmith":
		set("lock")
	case "games":
		set("games")
	case "funeral_directors":
		set("church")
	case "department_store":
		set("local_mall")
	case "chemist":
		set("science")
	case "carpet":
		set("storefront")
	case "water_sports":
		set("pool")
	case "water":
		set("sports")
	case "video":
		set("videocam")
	case "tailor":
		set("checkroom")
	case "storage_rental":
		set("warehouse")
	case "storage":
		set("warehouse")
	case "outdoor":
		set("outdoor_grill")
	case "houseware":
		set("chair")
	case "herbalist":
		set("local_florist")
	case "health_food":
		set("local_florist")
	case "grocery":
		set("local_grocery_store")
	case "food":
		set("local_grocery_store")
	case "curtain":
		set("storefront")
	case "boat":
		set("sailing")
	case "wholesale":
		set("local_grocery_store")
	case "surf":
		set("surfing")
	}

	switch amenity {
	case "restaurant":
		set("restaurant")
	case "atm":
		set("local_atm")
	case "cafe":
		set("local_cafe")
	case "bar":
		set("local_bar")
	case "bureau_de_change":
		set("currency_exchange")
	case "place_of_worship":
		set("church")
	case "fast_food":
		set("lunch_dining")
	case "bank":
		set("account_balance")
	case "dentist":
		set("medical_services")
	case "pub":
		set("sports_bar")
	case "doctors":
		set("medical_services")
	case "pharmacy":
		set("local_pharmacy")
	case "clinic":
		set("medical_services")
	case "school":
		set("school")
	case "taxi":
		set("local_taxi")
	case "studio":
		set("mic")
	case "fuel":
		set("local_gas_station")
	case "car_rental":
		set("directions_car")
	case "arts_centre":
		set("palette")
	case "police":
		set("local_police")
	case "hospital":
		set("local_hospital")
	case "brothel":
		set("adult_content")
	case "veterinary":
		set("pets")
	case "university":
		set("school")
	case "college":
		set("school")
	case "car_wash":
		set("local_car_wash")
	case "nightclub":
		set("nightlife")
	case "driving_school":
		set("directions_car")
	case "boat_rental":
		set("directions_boat")
	case "vending_machine":
		set("storefront")
	case "money_transfer":
		set("currency_exchange")
	case "marketplace":
		set("storefront")
	case "ice_cream":
		set("icecream")
	case "coworking_space":
		set("business")
	case "community_centre":
		set("group")
	case "kindergarten":
		set("child_care")
	case "internet_cafe":
		set("public")
	case "recycling":
		set("delete")
	case "payment_centre":
		set("currency_exchange")
	case "cinema":
		set("local_movies")
	case "childcare":
		set("child_care")
	case "bicycle_rental":
		set("pedal_bike")
	case "townhall":
		set("group")
	case "theatre":
		set("account_balance")
	case "post_office":
		set("local_post_office")
	case "payment_terminal":
		set("currency_exchange")
	case "office":
		set("business")
	case "language_school":
		set("school")
	case "charging_station":
		set("electrical_services")
	case "stripclub":
		set("adult_content")
	case "spa":
		set("spa")
	case "training":
		set("school")
	case "flight_school":
		set("flight_takeoff")
	case "motorcycle_rental":
		set("two_wheeler")
	case "dojo":
		set("sports_martial_arts")
	case "animal_breeding":
		set("cruelty_free")
	case "animal_shelter":
		set("pets")
	case "food_court":
		set("restaurant")
	case "dive_centre":
		set("scuba_diving")
	}

	switch leisure {
	case "sports_centre":
		set("fitness_center")
	case "hackerspace":
		set("computer")
	case "fitness_centre":
		set("fitness_center")
	case "pitch":
		set("sports")
	case "resort":
		set("beach_access")
	case "park":
		set("park")
	case "beach_resort":
		set("beach_access")
	case "marina":
		set("directions_boat")
	case "golf_course":
		set("golf_course")
	case "garden":
		set("local_florist")
	case "escape_game":
		set("games")
	case "dance":
		set("nightlife")
	case "kayak_dock":
		set("kayaking")
	case "water_park":
		set("pool")
	case "horse_riding":
		set("bedroom_baby")
	case "adventure_park":
		set("nature_people")
	case "casino":
		set("casino")
	case "amusement_arcade":
		set("videogame_asset")
	}

	if healthcare != "" {
		set("medical_services")
	}
	switch healthcare {
	case "dentist":
		set("medical_services")
	case "doctor":
		set("medical_services")
	case "clinic":
		set("medical_services")
	case "pharmacy":
		set("local_pharmacy")
	case "optometrist":
		set("visibility")
	}

	switch sport {
	case "scuba_diving":
		set("scuba_diving")
	case "soccer":
		set("sports_soccer")
	}

	switch craft {
	case "yes":
		set("construction")
	case "blacksmith":
		set("hardware")
	case "photographer":
		set("photo_camera")
	case "hvac":
		set("hvac")
	case "signmaker":
		set("hardware")
	case "brewery":
		set("sports_bar")
	case "confectionery":
		set("cake")
	case "tiler":
		set("grid_view")
	case "painter":
		set("imagesearch_roller")
	case "gardener":
		set("grass")
	case "metal_construction":
		set("construction")
	case "carpenter":
		set("carpenter")
	case "joiner":
		set("carpenter")
	case "cleaning":
		set("cleaning_services")
	case "electrician":
		set("electric_bolt")
	case "cabinet_maker":
		set("chair")
	case "jeweller":
		set("diamond")
	case "winery":
		set("wine_bar")
	case "electronics_repair":
		set("build")
	case "caterer":
		set("cooking")
	case "agricultural_engines":
		set("agriculture")
	case "roofer":
		set("roofing")
	case "art":
		set("palette")
	case "glaziery":
		set("window")
	case "beekeeper":
		set("hive")
	case "handicraft":
		set("volunteer_activism")
	}

	if company == "transport" {
		set("directions_car")
	}
	switch cuisine {
	case "burger":
		set("lunch_dining")
	case "pizza":
		set("local_pizza")
	}
	if telecom == "data_center" {
		set("dns")
	}
	if place == "farm" {
		set("agriculture")
	}
	if school == "music" {
		set("music_note")
	}
	switch club {
	case "yes":
		set("groups")
	case "tech":
		set("lan")
	}
	if playground == "structure" {
		set("attractions")
	}
	if industrial == "slaughterhouse" {
		set("surgical")
	}
	if historic == "castle" {
		set("castle")
	}

	// Compound, most-specific overrides last, exactly as the upstream
	// classifier layers them.
	if amenity == "fast_food" && cuisine == "ice_cream" {
		set("icecream")
	}
	if craft == "electronics_repair" && shop == "mobile_phone" {
		set("smartphone")
	}
	if craft == "electronics_repair" && shop == "computer" {
		set("computer")
	}

	return icon
}
